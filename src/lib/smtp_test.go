package lib

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildMessage(t *testing.T) {
	msg, err := BuildMessage(&SendMailInput{
		From:     "tickets@eventhub.test",
		FromName: "EventHub",
		To:       []string{"ana@example.com"},
		Subject:  "Booking confirmed",
		Body:     "See you there",
	})

	require.NoError(t, err)
	require.Len(t, msg.GetTo(), 1)
	assert.Equal(t, "ana@example.com", msg.GetTo()[0].Address)
	require.Len(t, msg.GetFrom(), 1)
	assert.Equal(t, "EventHub", msg.GetFrom()[0].Name)
}

func TestBuildMessageRejectsBadRecipient(t *testing.T) {
	_, err := BuildMessage(&SendMailInput{
		From: "tickets@eventhub.test",
		To:   []string{"not an address"},
	})

	assert.Error(t, err)
}
