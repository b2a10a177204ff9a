package model

import "time"

type BookStatus string

const (
	BookAvailable BookStatus = "available"
	BookBorrowed  BookStatus = "borrowed"
	BookReserved  BookStatus = "reserved"
)

type Book struct {
	ID           int64      `json:"id"`
	Title        string     `json:"title"`
	Author       string     `json:"author"`
	Genre        string     `json:"genre"`
	AvailableFor string     `json:"available_for"` // lend | swap | both
	Status       BookStatus `json:"status"`
	OwnerID      int64      `json:"owner_id"`
	OwnerName    string     `json:"owner_name"`
	CreatedAt    time.Time  `json:"created_at"`
}
