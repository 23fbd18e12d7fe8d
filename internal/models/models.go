// Package models defines the core data structures for the lead capture bot.
//
// It includes the lead record produced at the end of a dialogue, the
// conversation history types, and incoming message events shared across modules.
package models

import (
	"time"
)

// NotProvided is the sentinel stored for any lead field the extraction step
// could not find in the conversation. Lead fields are never left empty.
const NotProvided = "Não informado"

// Canonical classification labels assigned to a captured lead.
const (
	// ClassificationHot marks the highest-priority leads and triggers the admin alert.
	ClassificationHot = "Lead Quente"
	// ClassificationWarm marks medium-priority leads.
	ClassificationWarm = "Lead Morno"
	// ClassificationCold marks low-priority leads.
	ClassificationCold = "Lead Frio"
	// ClassificationError is stored when the classification call itself fails.
	ClassificationError = "Erro na Classificação"
)

// Message roles used in conversation history.
const (
	// RoleSystem carries the persona and data-collection instructions.
	RoleSystem = "system"
	// RoleUser carries messages written by the participant.
	RoleUser = "user"
	// RoleModel carries replies generated by the language model.
	RoleModel = "model"
)

// Lead holds the structured record extracted from a completed dialogue.
// Once appended to the sink it is never updated or deleted.
type Lead struct {
	Nome          string    `json:"Nome"`
	Email         string    `json:"Email"`
	Telefone      string    `json:"Telefone"`
	Interesse     string    `json:"Interesse"`
	Classificacao string    `json:"Classificação,omitempty"`
	CapturedAt    time.Time `json:"-"`
}

// FillDefaults substitutes the NotProvided sentinel for any empty field so a
// lead record never carries absent values.
func (l *Lead) FillDefaults() {
	if l.Nome == "" {
		l.Nome = NotProvided
	}
	if l.Email == "" {
		l.Email = NotProvided
	}
	if l.Telefone == "" {
		l.Telefone = NotProvided
	}
	if l.Interesse == "" {
		l.Interesse = NotProvided
	}
}

// IsCanonicalClassification reports whether the given label is one of the
// three canonical classification values.
func IsCanonicalClassification(label string) bool {
	switch label {
	case ClassificationHot, ClassificationWarm, ClassificationCold:
		return true
	}
	return false
}

// ConversationMessage represents a single turn in a dialogue history.
type ConversationMessage struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Response represents an incoming message from a participant.
type Response struct {
	From      string `json:"from"`              // channel-level chat identity
	Body      string `json:"body"`              // message text, or command arguments for commands
	FirstName string `json:"first_name"`        // sender display name, used in the greeting
	Command   string `json:"command,omitempty"` // bot command name without slash, empty for plain text
	Time      int64  `json:"time"`
}

// APIResponse represents a standard API response with a status and optional data.
type APIResponse struct {
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	Result  interface{} `json:"result,omitempty"`
}

// API status constants.
const (
	APIStatusOK    = "ok"
	APIStatusError = "error"
)
