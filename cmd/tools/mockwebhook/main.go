package main

import (
	"bytes"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

type webhookPayload struct {
	Event   string `json:"event"`
	Payload struct {
		Payment struct {
			Entity struct {
				ID        string `json:"id"`
				OrderID   string `json:"order_id"`
				Method    string `json:"method"`
				CreatedAt int64  `json:"created_at"`
			} `json:"entity"`
		} `json:"payment"`
	} `json:"payload"`
}

func main() {
	url := flag.String("url", "http://localhost:8080/payments/webhook", "Webhook URL")
	secret := flag.String("secret", os.Getenv("GATEWAY_WEBHOOK_SECRET"), "Webhook secret")
	eventType := flag.String("type", "payment.captured", "Event type (payment.captured, payment.failed)")
	intentID := flag.String("intent", "order_"+randomHex(6), "Remote intent id (gateway order id)")
	paymentID := flag.String("payment", "pay_"+randomHex(6), "Remote payment id")
	method := flag.String("method", "upi", "Payment method")
	dryRun := flag.Bool("dry-run", false, "Only print signature header, don't send")

	flag.Parse()

	if *secret == "" {
		fmt.Fprintf(os.Stderr, "Error: secret not provided and GATEWAY_WEBHOOK_SECRET not set\n")
		os.Exit(1)
	}

	// Build payload
	var payload webhookPayload
	payload.Event = *eventType
	payload.Payload.Payment.Entity.ID = *paymentID
	payload.Payload.Payment.Entity.OrderID = *intentID
	payload.Payload.Payment.Entity.Method = *method
	payload.Payload.Payment.Entity.CreatedAt = time.Now().Unix()

	body, err := json.Marshal(payload)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error marshaling payload: %v\n", err)
		os.Exit(1)
	}

	// Compute signature over the exact bytes being sent
	mac := hmac.New(sha256.New, []byte(*secret))
	mac.Write(body)
	sig := hex.EncodeToString(mac.Sum(nil))

	fmt.Printf("X-Gateway-Signature: %s\n", sig)
	fmt.Printf("Body: %s\n", string(body))

	if *dryRun {
		fmt.Println("\n[DRY RUN] Not sending request")
		return
	}

	fmt.Printf("\nSending to %s...\n", *url)
	req, err := http.NewRequest("POST", *url, bytes.NewReader(body))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error building request: %v\n", err)
		os.Exit(1)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Gateway-Signature", sig)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error sending request: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	fmt.Printf("Status: %s\nResponse: %s\n", resp.Status, string(respBody))
}

func randomHex(n int) string {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "deadbeef"
	}
	return hex.EncodeToString(b)
}
