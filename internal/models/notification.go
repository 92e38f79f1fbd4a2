package models

import "time"

type Notification struct {
	ID        string    `json:"_id" bson:"-"`
	Content   string    `json:"content" bson:"content"`
	User      int64     `json:"user" bson:"user"`
	Read      bool      `json:"read" bson:"read"`
	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt" bson:"updatedAt"`
}
