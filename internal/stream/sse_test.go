package stream

import (
	"context"
	"errors"
	"fmt"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"anyvidow/client/internal/models"
)

// newSSEStub 启动一个按帧吐SSE的测试服务器
func newSSEStub(t *testing.T, frames []string, sentinel bool) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.GET("/stream_single_download", func(c *gin.Context) {
		c.Header("Content-Type", "text/event-stream")
		for _, frame := range frames {
			fmt.Fprintf(c.Writer, "data: %s\n\n", frame)
			c.Writer.Flush()
		}
		if sentinel {
			fmt.Fprintf(c.Writer, "data: %s\n\n", models.Sentinel)
			c.Writer.Flush()
		}
	})

	server := httptest.NewServer(r)
	t.Cleanup(server.Close)
	return server
}

func collectEvents(ch Channel) []models.Event {
	var events []models.Event
	for ev := range ch.Events() {
		events = append(events, ev)
	}
	return events
}

func TestSSEChannel_OrderedEvents(t *testing.T) {
	server := newSSEStub(t, []string{
		`{"status":"starting","session_id":"s1"}`,
		`{"status":"downloading","progress":40,"phase":"video"}`,
		`{"status":"ready","filename":"a.mp4"}`,
	}, true)

	client := NewSSEClient(server.URL, zap.NewNop())
	ch, err := client.Open(context.Background(), "/stream_single_download", url.Values{"url": {"u"}})
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}

	events := collectEvents(ch)
	if len(events) != 3 {
		t.Fatalf("got %d events, expected 3", len(events))
	}

	expected := []models.Status{models.StatusStarting, models.StatusDownloading, models.StatusReady}
	for i, want := range expected {
		if events[i].Kind() != want {
			t.Errorf("event %d: Kind() = %s, expected %s", i, events[i].Kind(), want)
		}
	}

	if err := ch.Err(); err != nil {
		t.Errorf("Err() = %v, expected nil after sentinel", err)
	}
}

func TestSSEChannel_MalformedFramesDropped(t *testing.T) {
	server := newSSEStub(t, []string{
		`{"status":"starting"}`,
		`{broken json`,
		`{"status":"unheard_of"}`,
		`{"status":"downloading","progress":50}`,
	}, true)

	client := NewSSEClient(server.URL, zap.NewNop())
	ch, err := client.Open(context.Background(), "/stream_single_download", url.Values{})
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}

	events := collectEvents(ch)
	if len(events) != 2 {
		t.Fatalf("got %d events, expected 2 (malformed frames dropped)", len(events))
	}
	if ch.Err() != nil {
		t.Errorf("Err() = %v, malformed frames must not fail the stream", ch.Err())
	}
}

func TestSSEChannel_DropWithoutSentinel(t *testing.T) {
	server := newSSEStub(t, []string{
		`{"status":"downloading","progress":30}`,
	}, false) // 服务器不发[DONE]就关流

	client := NewSSEClient(server.URL, zap.NewNop())
	ch, err := client.Open(context.Background(), "/stream_single_download", url.Values{})
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}

	collectEvents(ch)
	if !errors.Is(ch.Err(), models.ErrStreamInterrupted) {
		t.Errorf("Err() = %v, expected ErrStreamInterrupted", ch.Err())
	}
}

func TestSSEChannel_LocalCloseIsClean(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/stream_single_download", func(c *gin.Context) {
		c.Header("Content-Type", "text/event-stream")
		fmt.Fprint(c.Writer, "data: {\"status\":\"starting\"}\n\n")
		c.Writer.Flush()
		// 挂住直到客户端断开
		<-c.Request.Context().Done()
	})
	server := httptest.NewServer(r)
	defer server.Close()

	client := NewSSEClient(server.URL, zap.NewNop())
	ch, err := client.Open(context.Background(), "/stream_single_download", url.Values{})
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}

	<-ch.Events() // 等到流确实建立起来

	if err := ch.Close(); err != nil {
		t.Errorf("Close() error: %v", err)
	}
	if err := ch.Close(); err != nil {
		t.Errorf("second Close() error: %v", err)
	}

	collectEvents(ch)
	if err := ch.Err(); err != nil {
		t.Errorf("Err() = %v, local close must not count as transport error", err)
	}
}

func TestSSEChannel_RejectedRequest(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	server := httptest.NewServer(r) // 没有注册路由,404
	defer server.Close()

	client := NewSSEClient(server.URL, zap.NewNop())
	if _, err := client.Open(context.Background(), "/stream_single_download", url.Values{}); err == nil {
		t.Error("expected error for non-200 response")
	}
}
