package domain

import (
	"strings"
	"testing"
	"time"

	"github.com/alexanderramin/timekeeper/internal/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassification_NormalizeAndValidate(t *testing.T) {
	c := Classification{
		Module:    " billing ",
		Severity:  "HIGH",
		Source:    "Ticket",
		TicketRef: " ops-142 ",
	}.Normalize()

	assert.Equal(t, "billing", c.Module)
	assert.Equal(t, SeverityHigh, c.Severity)
	assert.Equal(t, SourceTicket, c.Source)
	assert.Equal(t, "OPS-142", c.TicketRef)
	assert.NoError(t, c.Validate())
}

func TestClassification_Invalid(t *testing.T) {
	cases := []struct {
		name  string
		c     Classification
		field string
	}{
		{"severity", Classification{Severity: "urgent"}, "severity"},
		{"source", Classification{Source: "email"}, "source"},
		{"ticket", Classification{TicketRef: "142"}, "ticket_ref"},
		{"module length", Classification{Module: strings.Repeat("m", 65)}, "module"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.c.Validate()
			require.Error(t, err)
			assert.ErrorIs(t, err, apperr.ErrValidation)

			var appErr *apperr.Error
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, tc.field, appErr.Metadata["field"])
		})
	}
}

func TestNewSession_RejectsInvalidClassification(t *testing.T) {
	_, err := NewSession("s", "u", "p", "", Classification{Severity: "meh"}, time.Now())
	assert.ErrorIs(t, err, apperr.ErrValidation)
}
