package domain

import (
	"strings"
	"time"
)

// Item is a catalog entry.
type Item struct {
	ID              string    `bson:"_id" json:"id"`
	Description     string    `bson:"description" json:"description"`
	InternalSKU     string    `bson:"internalSku" json:"internalSku"`
	ManufacturerSKU string    `bson:"manufacturerSku,omitempty" json:"manufacturerSku,omitempty"`
	CreatedAt       time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt       time.Time `bson:"updatedAt" json:"updatedAt"`
}

// NewItem validates and creates a catalog entry.
func NewItem(id, description, internalSKU, manufacturerSKU string, now time.Time) (*Item, error) {
	item := &Item{
		ID:              strings.TrimSpace(id),
		Description:     strings.TrimSpace(description),
		InternalSKU:     strings.TrimSpace(internalSKU),
		ManufacturerSKU: strings.TrimSpace(manufacturerSKU),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if item.ID == "" {
		return nil, NewValidationError("id", "is required")
	}
	if err := item.validate(); err != nil {
		return nil, err
	}
	return item, nil
}

func (i *Item) validate() error {
	if i.Description == "" {
		return NewValidationError("description", "is required")
	}
	if i.InternalSKU == "" {
		return NewValidationError("internalSku", "is required")
	}
	return nil
}

// ItemChange holds the edited fields of an item. Nil fields are left unchanged.
type ItemChange struct {
	Description     *string
	InternalSKU     *string
	ManufacturerSKU *string
}

// Apply edits the item and reports the description it had before, when that changed.
func (i *Item) Apply(change ItemChange, now time.Time) (previousDescription string, renamed bool, err error) {
	next := *i
	if change.Description != nil {
		next.Description = strings.TrimSpace(*change.Description)
	}
	if change.InternalSKU != nil {
		next.InternalSKU = strings.TrimSpace(*change.InternalSKU)
	}
	if change.ManufacturerSKU != nil {
		next.ManufacturerSKU = strings.TrimSpace(*change.ManufacturerSKU)
	}
	if err := next.validate(); err != nil {
		return "", false, err
	}

	previousDescription = i.Description
	renamed = next.Description != i.Description
	next.UpdatedAt = now
	*i = next
	return previousDescription, renamed, nil
}
