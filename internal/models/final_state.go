package models

import "time"

type FinalState struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Date      string    `json:"date"`
	DataType  string    `json:"data_type"`
	Content   string    `json:"content"`
	Desc      string    `json:"desc"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}
