package mail_test

import (
	"context"
	"net"
	"strings"
	"testing"

	"github.com/haris-cl/inbox-nuke/backend/internal/mail"
	"github.com/haris-cl/inbox-nuke/backend/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubmitterSendUnsubscribe(t *testing.T) {
	server := testutil.NewTestSMTPServer(t)

	host, port, err := net.SplitHostPort(server.Address)
	require.NoError(t, err)

	submitter := &mail.Submitter{
		Host:        host,
		Port:        port,
		Username:    server.Username(),
		Password:    server.Password(),
		From:        "me@example.com",
		UseStartTLS: false,
	}

	err = submitter.SendUnsubscribe(context.Background(), "unsubscribe@list.example.com", "unsubscribe")
	require.NoError(t, err)

	messages := server.GetMessages()
	require.Len(t, messages, 1)

	assert.Equal(t, "me@example.com", messages[0].From)
	require.Len(t, messages[0].To, 1)
	assert.Equal(t, "unsubscribe@list.example.com", messages[0].To[0])

	data := string(messages[0].Data)
	assert.True(t, strings.Contains(data, "Subject: unsubscribe"), "message should carry the unsubscribe subject:\n%s", data)
	assert.True(t, strings.Contains(data, "To: <unsubscribe@list.example.com>"), "message should address the list endpoint:\n%s", data)
}

func TestSubmitterDefaultsSubject(t *testing.T) {
	server := testutil.NewTestSMTPServer(t)

	host, port, err := net.SplitHostPort(server.Address)
	require.NoError(t, err)

	submitter := &mail.Submitter{
		Host:        host,
		Port:        port,
		Username:    server.Username(),
		Password:    server.Password(),
		From:        "me@example.com",
		UseStartTLS: false,
	}

	err = submitter.SendUnsubscribe(context.Background(), "leave@list.example.com", "")
	require.NoError(t, err)

	messages := server.GetMessages()
	require.Len(t, messages, 1)
	assert.Contains(t, string(messages[0].Data), "Subject: unsubscribe")
}

func TestSubmitterRequiresFromAddress(t *testing.T) {
	submitter := &mail.Submitter{Host: "localhost", Port: "2525"}

	err := submitter.SendUnsubscribe(context.Background(), "x@y.example", "unsubscribe")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "from address")
}
