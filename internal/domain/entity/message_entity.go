package entity

import "time"

// Message is an anonymous note. Exactly one of ReceiverID and TopicID is set:
// ReceiverID for messages sent to a user, TopicID for anonymous posts made
// directly to a topic.
type Message struct {
	ID         string    `json:"id"`
	Text       string    `json:"text"`
	ReceiverID string    `json:"receiver_id,omitempty"`
	TopicID    string    `json:"topic_id,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}
