package feed

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	gorillaws "github.com/gorilla/websocket"
	"github.com/richxcame/upi-guard/pkg/eventbus"
	ws "github.com/richxcame/upi-guard/pkg/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type recordingHub struct {
	mu      sync.Mutex
	msgs    []*ws.Message
	batches int
	full    bool
}

func (r *recordingHub) Publish(msgs ...*ws.Message) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.full {
		return false
	}
	r.msgs = append(r.msgs, msgs...)
	r.batches++
	return true
}

type mockSubscriber struct {
	mock.Mock
}

func (m *mockSubscriber) Subscribe(ctx context.Context, subject, durable string, handler eventbus.Handler) error {
	return m.Called(ctx, subject, durable, mock.Anything).Error(0)
}

func newEvent(t *testing.T, eventType string, data interface{}) *eventbus.Event {
	t.Helper()
	e, err := eventbus.NewEvent(eventType, "test", data)
	require.NoError(t, err)
	return e
}

var checkedAt = time.Date(2026, 10, 18, 9, 30, 0, 0, time.UTC)

func TestStart_SubscribesEphemeral(t *testing.T) {
	sub := new(mockSubscriber)
	for _, subject := range []string{eventbus.SubjectCheckCompleted, eventbus.SubjectReportSubmitted, eventbus.SubjectReportDeleted} {
		sub.On("Subscribe", mock.Anything, subject, "", mock.Anything).Return(nil).Once()
	}

	require.NoError(t, NewService(&recordingHub{}).Start(context.Background(), sub))
	sub.AssertExpectations(t)
}

func TestStart_Error(t *testing.T) {
	sub := new(mockSubscriber)
	sub.On("Subscribe", mock.Anything, eventbus.SubjectCheckCompleted, "", mock.Anything).Return(errors.New("no stream"))

	assert.EqualError(t, NewService(&recordingHub{}).Start(context.Background(), sub), "no stream")
}

func TestHandleEvent(t *testing.T) {
	domain := "support-paytm"

	tests := []struct {
		name      string
		event     func(t *testing.T) *eventbus.Event
		wantTypes []string
		wantTopic []string
	}{
		{
			name: "check completed",
			event: func(t *testing.T) *eventbus.Event {
				return newEvent(t, eventbus.TypeCheckCompleted, eventbus.CheckCompletedData{
					CheckID: "c1", UPIID: "bob@support-paytm", Domain: &domain, IsSuspicious: true, Status: "suspicious", CheckedAt: checkedAt,
				})
			},
			wantTypes: []string{MessageCheckCompleted},
			wantTopic: []string{""},
		},
		{
			name: "report submitted",
			event: func(t *testing.T) *eventbus.Event {
				return newEvent(t, eventbus.TypeReportSubmitted, eventbus.ReportSubmittedData{
					ReportID: "r1", UPIID: "scam@ybl", Reason: "fake KYC call", ReportedAt: checkedAt,
				})
			},
			wantTypes: []string{MessageReportSubmitted, MessageUPIReported},
			wantTopic: []string{"", "scam@ybl"},
		},
		{
			name: "report deleted",
			event: func(t *testing.T) *eventbus.Event {
				return newEvent(t, eventbus.TypeReportDeleted, eventbus.ReportDeletedData{ReportID: "r1", DeletedBy: "mod"})
			},
			wantTypes: []string{MessageReportDeleted},
			wantTopic: []string{""},
		},
		{
			name: "unknown type",
			event: func(t *testing.T) *eventbus.Event {
				return newEvent(t, "something.else", map[string]string{})
			},
		},
		{
			name: "undecodable payload",
			event: func(t *testing.T) *eventbus.Event {
				e := newEvent(t, eventbus.TypeCheckCompleted, nil)
				e.Data = []byte(`"not an object"`)
				return e
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hub := &recordingHub{}
			require.NoError(t, NewService(hub).HandleEvent(context.Background(), tt.event(t)))

			require.Len(t, hub.msgs, len(tt.wantTypes))
			for i, msg := range hub.msgs {
				assert.Equal(t, tt.wantTypes[i], msg.Type)
				assert.Equal(t, tt.wantTopic[i], msg.Topic)
			}
		})
	}
}

func TestHandleEvent_CheckPayload(t *testing.T) {
	hub := &recordingHub{}
	event := newEvent(t, eventbus.TypeCheckCompleted, eventbus.CheckCompletedData{
		CheckID: "c1", UPIID: "alice@paytm", Status: "safe", CheckedAt: checkedAt,
	})

	require.NoError(t, NewService(hub).HandleEvent(context.Background(), event))
	require.Len(t, hub.msgs, 1)
	assert.Equal(t, "alice@paytm", hub.msgs[0].Data["upi_id"])
	assert.Equal(t, "safe", hub.msgs[0].Data["status"])
	assert.Equal(t, event.Timestamp, hub.msgs[0].Timestamp)
}

func TestHandleEvent_Backpressure(t *testing.T) {
	hub := &recordingHub{full: true}
	event := newEvent(t, eventbus.TypeReportDeleted, eventbus.ReportDeletedData{ReportID: "r1"})

	assert.ErrorIs(t, NewService(hub).HandleEvent(context.Background(), event), ErrBackpressure)
}

func TestHandleEvent_ReportPublishedAsOneBatch(t *testing.T) {
	hub := &recordingHub{}
	event := newEvent(t, eventbus.TypeReportSubmitted, eventbus.ReportSubmittedData{ReportID: "r1", UPIID: "scam@ybl"})

	require.NoError(t, NewService(hub).HandleEvent(context.Background(), event))
	assert.Equal(t, 1, hub.batches)
	assert.Len(t, hub.msgs, 2)
}

func TestHandleEvent_RedeliveryAfterBackpressure(t *testing.T) {
	// the hub is not running, so its broadcast buffer only drains here
	hub := ws.NewHub()
	for len(hub.Broadcast) < cap(hub.Broadcast) {
		hub.Broadcast <- nil
	}
	svc := NewService(hub)
	ctx := context.Background()

	event := newEvent(t, eventbus.TypeReportSubmitted, eventbus.ReportSubmittedData{ReportID: "r1", UPIID: "scam@ybl"})
	require.ErrorIs(t, svc.HandleEvent(ctx, event), ErrBackpressure)
	assert.Equal(t, cap(hub.Broadcast), len(hub.Broadcast))

	<-hub.Broadcast
	require.NoError(t, svc.HandleEvent(ctx, event))

	counts := map[string]int{}
	for len(hub.Broadcast) > 0 {
		for _, msg := range <-hub.Broadcast {
			counts[msg.Type]++
		}
	}
	assert.Equal(t, map[string]int{MessageReportSubmitted: 1, MessageUPIReported: 1}, counts)
}

func TestHandler_DeliversBroadcasts(t *testing.T) {
	hub := ws.NewHub()
	go hub.Run()
	t.Cleanup(hub.Stop)

	router := gin.New()
	NewHandler(hub, nil).RegisterRoutes(router.Group("/api/v1"))
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	conn, _, err := gorillaws.DefaultDialer.Dial("ws"+strings.TrimPrefix(server.URL, "http")+"/api/v1/feed", nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	require.Eventually(t, func() bool { return hub.GetClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	event := newEvent(t, eventbus.TypeReportSubmitted, eventbus.ReportSubmittedData{ReportID: "r9", UPIID: "scam@ybl", Reason: "lottery"})
	require.NoError(t, NewService(hub).HandleEvent(context.Background(), event))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var got ws.Message
	require.NoError(t, conn.ReadJSON(&got))
	assert.Equal(t, MessageReportSubmitted, got.Type)
	assert.Equal(t, "r9", got.Data["report_id"])
}

func TestHandler_RejectsPlainHTTP(t *testing.T) {
	hub := ws.NewHub()
	router := gin.New()
	NewHandler(hub, nil).RegisterRoutes(router.Group("/api/v1"))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/feed", nil))
	assert.Equal(t, 400, w.Code)
	assert.Equal(t, 0, hub.GetClientCount())
}
