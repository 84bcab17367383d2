package dto

import "time"

type CreateSessionResponse struct {
	Id        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
}

type UploadDocumentsResponse struct {
	Files   []string `json:"files"`
	Skipped []string `json:"skipped,omitempty"`
	Chunks  int      `json:"chunks"`
}
