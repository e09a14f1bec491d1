package messaging

import "github.com/google/uuid"

// ImageTaskPayload is one image-generation task: exactly one slide's
// illustration request.
type ImageTaskPayload struct {
	TaskID         string    `json:"taskId"`
	PresentationID uuid.UUID `json:"presentationId"`
	SlideID        uuid.UUID `json:"slideId"`
	UserID         uuid.UUID `json:"userId"`
	Prompt         string    `json:"prompt"`
	TemplateType   string    `json:"templateType"`
	Theme          string    `json:"theme"`
	ImageStyle     string    `json:"imageStyle"`
}
