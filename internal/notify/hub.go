package notify

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"
)

type envelope struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
	TS    int64  `json:"ts"`
}

type message struct {
	channel string
	data    []byte
}

type subscription struct {
	client  *Client
	channel string
}

// Hub owns all room membership and delivery. Delivery is at-most-once:
// a slow or disconnected subscriber simply misses the event; true state
// is always reconstructable from an order read.
type Hub struct {
	logger *slog.Logger

	rooms map[string]map[*Client]struct{}

	join      chan subscription
	leave     chan subscription
	detach    chan *Client
	broadcast chan message
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		logger:    logger,
		rooms:     make(map[string]map[*Client]struct{}),
		join:      make(chan subscription),
		leave:     make(chan subscription),
		detach:    make(chan *Client),
		broadcast: make(chan message, 256),
	}
}

// Run loops until ctx is done. Start it once from main.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case sub := <-h.join:
			room := h.rooms[sub.channel]
			if room == nil {
				room = make(map[*Client]struct{})
				h.rooms[sub.channel] = room
			}
			room[sub.client] = struct{}{}
			sub.client.channels[sub.channel] = struct{}{}
		case sub := <-h.leave:
			h.removeFromRoom(sub.client, sub.channel)
		case c := <-h.detach:
			for ch := range c.channels {
				h.removeFromRoom(c, ch)
			}
			close(c.send)
		case m := <-h.broadcast:
			for c := range h.rooms[m.channel] {
				select {
				case c.send <- m.data:
				default:
					// slow consumer: drop, at-most-once
					h.logger.Warn("notify: dropped event for slow client", "channel", m.channel)
				}
			}
		}
	}
}

func (h *Hub) removeFromRoom(c *Client, channel string) {
	room := h.rooms[channel]
	if room == nil {
		return
	}
	delete(room, c)
	delete(c.channels, channel)
	if len(room) == 0 {
		delete(h.rooms, channel)
	}
}

// Publish marshals once and hands off to the hub loop. It never blocks:
// if the hub's queue is full the event is dropped and logged.
func (h *Hub) Publish(channel, event string, payload any) {
	data, err := json.Marshal(envelope{Event: event, Data: payload, TS: time.Now().Unix()})
	if err != nil {
		h.logger.Error("notify: marshal failed", "event", event, "err", err)
		return
	}
	select {
	case h.broadcast <- message{channel: channel, data: data}:
	case <-time.After(100 * time.Millisecond):
		h.logger.Warn("notify: publish queue full, event dropped", "channel", channel, "event", event)
	}
}

// Join subscribes an attached client to a channel.
func (h *Hub) Join(c *Client, channel string) {
	h.join <- subscription{client: c, channel: channel}
}

var _ Publisher = (*Hub)(nil)
