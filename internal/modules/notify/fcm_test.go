package notify

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"firebase.google.com/go/v4/messaging"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMulticaster struct {
	batches [][]string
	failOn  string
	err     error
}

func (f *fakeMulticaster) SendEachForMulticast(_ context.Context, m *messaging.MulticastMessage) (*messaging.BatchResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.batches = append(f.batches, m.Tokens)
	resp := &messaging.BatchResponse{}
	for i, tok := range m.Tokens {
		if tok == f.failOn {
			resp.FailureCount++
			resp.Responses = append(resp.Responses, &messaging.SendResponse{Error: errors.New("unregistered")})
			continue
		}
		resp.SuccessCount++
		resp.Responses = append(resp.Responses, &messaging.SendResponse{Success: true, MessageID: fmt.Sprintf("m%d", i)})
	}
	return resp, nil
}

func TestMessageValidate(t *testing.T) {
	_, err := Message{Title: "x"}.Validate()
	assert.ErrorIs(t, err, ErrNoTokens)

	_, err = Message{Tokens: []string{"", ""}}.Validate()
	assert.ErrorIs(t, err, ErrNoTokens)

	m, err := Message{Tokens: []string{"a", "", "b"}}.Validate()
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, m.Tokens)
}

func TestFCMSender_PerTokenStatus(t *testing.T) {
	fake := &fakeMulticaster{failOn: "bad"}
	s := NewFCMSender(fake, zerolog.Nop())

	report, err := s.Send(context.Background(), Message{Title: "t", Body: "b", Tokens: []string{"good", "bad"}})
	require.NoError(t, err)

	assert.Equal(t, 1, report.SuccessCount)
	assert.Equal(t, 1, report.FailureCount)
	require.Len(t, report.Deliveries, 2)
	assert.True(t, report.Deliveries[0].Success)
	assert.Equal(t, "bad", report.Deliveries[1].Token)
	assert.Equal(t, "unregistered", report.Deliveries[1].Error)
}

func TestFCMSender_Batches(t *testing.T) {
	fake := &fakeMulticaster{}
	s := NewFCMSender(fake, zerolog.Nop())

	tokens := make([]string, 1201)
	for i := range tokens {
		tokens[i] = fmt.Sprintf("tok%d", i)
	}
	report, err := s.Send(context.Background(), Message{Tokens: tokens})
	require.NoError(t, err)

	require.Len(t, fake.batches, 3)
	assert.Len(t, fake.batches[0], 500)
	assert.Len(t, fake.batches[2], 201)
	assert.Equal(t, 1201, report.SuccessCount)
}

func TestFCMSender_TransportError(t *testing.T) {
	s := NewFCMSender(&fakeMulticaster{err: errors.New("unavailable")}, zerolog.Nop())
	_, err := s.Send(context.Background(), Message{Tokens: []string{"a"}})
	assert.Error(t, err)
}

func TestLogSender(t *testing.T) {
	s := NewLogSender(zerolog.Nop())
	report, err := s.Send(context.Background(), Message{Tokens: []string{"a", "b"}})
	require.NoError(t, err)
	assert.Equal(t, 2, report.FailureCount)

	_, err = s.Send(context.Background(), Message{})
	assert.ErrorIs(t, err, ErrNoTokens)
}
