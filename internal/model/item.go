package model

import (
	"fmt"
	"strings"
)

// Item is a unit of loanable equipment with bounded stock.
type Item struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	TotalStock     int    `json:"totalStock"`
	AvailableStock int    `json:"availableStock"`
	Description    string `json:"description,omitempty"`
	PhotoMime      string `json:"photoMime,omitempty"`
	Version        int64  `json:"version"`
}

// ValidateItem checks the fields staff can edit on an item.
func ValidateItem(name string, totalStock int) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: name required", ErrInvalidItem)
	}
	if totalStock < 0 {
		return fmt.Errorf("%w: total stock must not be negative", ErrInvalidItem)
	}
	return nil
}
