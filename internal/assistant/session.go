// ABOUTME: Conversation session over the embedded assistant streaming RPC.
// ABOUTME: One Ask per turn - sends a single request, drains the stream, threads state.

package assistant

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	embeddedpb "google.golang.org/genproto/googleapis/assistant/embedded/v1alpha2"
)

// Fixed audio-out parameters. Audio is requested because the protocol
// demands an output config, but this is a text-only client: volume is
// pinned to zero and the audio payload is discarded.
const (
	audioEncoding   = embeddedpb.AudioOutConfig_LINEAR16
	audioSampleRate = 16000
	audioVolume     = 0
)

// Options configures a Session at construction. All fields are immutable
// for the session's lifetime.
type Options struct {
	LanguageCode  string
	DeviceModelID string
	DeviceID      string
	Deadline      time.Duration
}

// Session executes conversational turns and preserves cross-turn
// continuity state. It is safe for concurrent use; turns are serialized.
type Session struct {
	languageCode  string
	deviceModelID string
	deviceID      string
	deadline      time.Duration

	client embeddedpb.EmbeddedAssistantClient
	logger *slog.Logger

	// mu serializes turns. The conversation state token is a single
	// slot shared by every caller; concurrent turns would corrupt each
	// other's continuity.
	mu                sync.Mutex
	conversationState []byte
}

// NewSession creates a Session over an already-authenticated client.
func NewSession(client embeddedpb.EmbeddedAssistantClient, opts Options, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{
		languageCode:  opts.LanguageCode,
		deviceModelID: opts.DeviceModelID,
		deviceID:      opts.DeviceID,
		deadline:      opts.Deadline,
		client:        client,
		logger:        logger.With("component", "assistant"),
	}
}

// Ask sends one text query to the assistant and returns its display
// text. ok is false when the service completed the turn without any
// supplemental text, which is a normal outcome, not an error.
//
// The session's state token is updated only when the whole stream has
// been consumed successfully; on any failure it keeps its pre-turn
// value so a retry continues from the last known-good context.
func (s *Session) Ask(ctx context.Context, queryText string) (reply string, ok bool, err error) {
	if queryText == "" {
		return "", false, fmt.Errorf("empty query")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	turnID := uuid.New().String()
	start := time.Now()

	ctx, cancel := context.WithTimeout(ctx, s.deadline)
	defer cancel()

	stream, err := s.client.Assist(ctx)
	if err != nil {
		return "", false, classify(err)
	}

	if err := stream.Send(s.buildRequest(queryText)); err != nil {
		return "", false, classify(err)
	}
	// Single-shot query: one request per turn, then end-of-output.
	if err := stream.CloseSend(); err != nil {
		return "", false, classify(err)
	}

	// Fold over the response stream. The token and the text may arrive
	// on different messages, in either order; both slots keep the last
	// non-empty value seen before EOF.
	var (
		lastState []byte
		lastText  string
		haveText  bool
	)
	for {
		resp, err := stream.Recv()
		if err == io.EOF {
			break
		}
		if err != nil {
			s.logger.Warn("turn failed mid-stream",
				"turn_id", turnID,
				"error", err,
			)
			return "", false, classify(err)
		}

		out := resp.GetDialogStateOut()
		if out == nil {
			continue
		}
		if state := out.GetConversationState(); len(state) > 0 {
			lastState = state
		}
		if text := out.GetSupplementalDisplayText(); text != "" {
			lastText = text
			haveText = true
		}
	}

	if lastState != nil {
		s.conversationState = lastState
	}

	s.logger.Debug("turn completed",
		"turn_id", turnID,
		"duration_ms", time.Since(start).Milliseconds(),
		"have_reply", haveText,
		"state_bytes", len(s.conversationState),
	)

	return lastText, haveText, nil
}

// buildRequest constructs the single outbound message for a turn.
// Must be called with mu held.
func (s *Session) buildRequest(queryText string) *embeddedpb.AssistRequest {
	return &embeddedpb.AssistRequest{
		Type: &embeddedpb.AssistRequest_Config{
			Config: &embeddedpb.AssistConfig{
				AudioOutConfig: &embeddedpb.AudioOutConfig{
					Encoding:         audioEncoding,
					SampleRateHertz:  audioSampleRate,
					VolumePercentage: audioVolume,
				},
				DialogStateIn: &embeddedpb.DialogStateIn{
					LanguageCode:      s.languageCode,
					ConversationState: s.conversationState,
				},
				DeviceConfig: &embeddedpb.DeviceConfig{
					DeviceId:      s.deviceID,
					DeviceModelId: s.deviceModelID,
				},
				Type: &embeddedpb.AssistConfig_TextQuery{TextQuery: queryText},
			},
		},
	}
}

// State returns a copy of the current conversation state token. Exposed
// for tests and diagnostics; empty on a fresh session.
func (s *Session) State() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conversationState == nil {
		return nil
	}
	out := make([]byte, len(s.conversationState))
	copy(out, s.conversationState)
	return out
}
