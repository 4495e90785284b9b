package helper

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// NewID creates a random v4 UUID.
func NewID() (uuid.UUID, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to generate UUID: %v", err)
	}
	return id, nil
}

// SanitizeErrorMessage flattens an error into a single bounded line fit for
// persisting on a material row.
func SanitizeErrorMessage(err error, maxLen int) string {
	if err == nil {
		return ""
	}
	msg := strings.Join(strings.Fields(err.Error()), " ")
	if maxLen > 0 && len(msg) > maxLen {
		msg = msg[:maxLen]
	}
	return msg
}

// PrettyPrint dumps a value as indented JSON to stdout.
func PrettyPrint(v interface{}) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		log.Warn().Msg("Error pretty printing")
	}
	fmt.Println(string(b))
}
