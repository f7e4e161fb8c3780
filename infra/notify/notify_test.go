package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/schedpdf/infra/logger"
)

type publishedMsg struct {
	topic    string
	qos      byte
	retained bool
	payload  []byte
}

// mockClient implements paho.Client for tests.
type mockClient struct {
	mu          sync.Mutex
	opts        *paho.ClientOptions
	published   []publishedMsg
	publishErrs []error
}

func (m *mockClient) IsConnected() bool { return true }
func (m *mockClient) Connect() paho.Token {
	if m.opts != nil && m.opts.OnConnect != nil {
		m.opts.OnConnect(m)
	}
	return &dummyToken{}
}
func (m *mockClient) Disconnect(uint) {}
func (m *mockClient) Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token {
	m.mu.Lock()
	defer m.mu.Unlock()
	var b []byte
	switch p := payload.(type) {
	case []byte:
		b = p
	case string:
		b = []byte(p)
	}
	m.published = append(m.published, publishedMsg{topic, qos, retained, b})
	if len(m.publishErrs) > 0 {
		err := m.publishErrs[0]
		m.publishErrs = m.publishErrs[1:]
		return &dummyToken{err: err}
	}
	return &dummyToken{}
}
func (m *mockClient) Subscribe(string, byte, paho.MessageHandler) paho.Token { return &dummyToken{} }
func (m *mockClient) SubscribeMultiple(map[string]byte, paho.MessageHandler) paho.Token {
	return &dummyToken{}
}
func (m *mockClient) Unsubscribe(...string) paho.Token        { return &dummyToken{} }
func (m *mockClient) AddRoute(string, paho.MessageHandler)    {}
func (m *mockClient) OptionsReader() paho.ClientOptionsReader { return paho.ClientOptionsReader{} }
func (m *mockClient) IsConnectionOpen() bool                  { return true }

type dummyToken struct{ err error }

func (d dummyToken) Wait() bool                     { return true }
func (d dummyToken) WaitTimeout(time.Duration) bool { return true }
func (d dummyToken) Done() <-chan struct{}          { ch := make(chan struct{}); close(ch); return ch }
func (d dummyToken) Error() error                   { return d.err }

func useMock(t *testing.T, mc *mockClient) {
	t.Helper()
	newMQTTClient = func(o *paho.ClientOptions) pahoClient { mc.opts = o; return mc }
	t.Cleanup(func() {
		newMQTTClient = func(opts *paho.ClientOptions) pahoClient { return paho.NewClient(opts) }
	})
}

func TestNew_DisabledIsNop(t *testing.T) {
	n, err := New(Config{}, nil)
	require.NoError(t, err)
	assert.IsType(t, NopNotifier{}, n)
	assert.NoError(t, n.Notify(context.Background(), Artifact{}))
}

func TestMQTTNotifier_PublishesArtifact(t *testing.T) {
	mc := &mockClient{}
	useMock(t, mc)
	n, err := NewMQTTNotifier(Config{Enabled: true, Broker: "tcp://localhost:1883", TopicPrefix: "roboday/pdf/", QoS: 1}, logger.NopLogger{})
	require.NoError(t, err)
	defer n.Close()

	require.Len(t, mc.published, 1)
	assert.Equal(t, "roboday/pdf/status", mc.published[0].topic)
	assert.Equal(t, "online", string(mc.published[0].payload))
	assert.True(t, mc.published[0].retained)
	assert.True(t, mc.opts.WillEnabled)
	assert.Equal(t, "offline", string(mc.opts.WillPayload))

	a := Artifact{RunID: "r1", School: "SP 1", Source: "output/SP_1_schedule.tex", PDF: "pdf/SP_1_schedule.pdf", Passes: 2, DurationMS: 1200}
	require.NoError(t, n.Notify(context.Background(), a))
	require.Len(t, mc.published, 2)
	msg := mc.published[1]
	assert.Equal(t, "roboday/pdf/SP_1_schedule", msg.topic)
	assert.Equal(t, byte(1), msg.qos)

	var got Artifact
	require.NoError(t, json.Unmarshal(msg.payload, &got))
	assert.Equal(t, a.PDF, got.PDF)
	assert.Equal(t, "SP 1", got.School)
}

func TestMQTTNotifier_Retries(t *testing.T) {
	mc := &mockClient{}
	useMock(t, mc)
	n, err := NewMQTTNotifier(Config{Enabled: true, Broker: "tcp://localhost:1883", MaxRetries: 2, BackoffMS: 1}, logger.NopLogger{})
	require.NoError(t, err)
	mc.publishErrs = []error{fmt.Errorf("net fail"), nil}

	require.NoError(t, n.Notify(context.Background(), Artifact{PDF: "pdf/a.pdf"}))
	assert.Len(t, mc.published, 3)

	mc.publishErrs = []error{fmt.Errorf("1"), fmt.Errorf("2"), fmt.Errorf("3")}
	err = n.Notify(context.Background(), Artifact{PDF: "pdf/b.pdf"})
	assert.ErrorContains(t, err, "schedpdf/artifacts/b")
}

func TestMQTTNotifier_CanceledDuringBackoff(t *testing.T) {
	mc := &mockClient{}
	useMock(t, mc)
	n, err := NewMQTTNotifier(Config{Enabled: true, Broker: "tcp://localhost:1883", MaxRetries: 5, BackoffMS: 1000}, logger.NopLogger{})
	require.NoError(t, err)
	mc.publishErrs = []error{fmt.Errorf("net fail")}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, n.Notify(ctx, Artifact{PDF: "a.pdf"}), context.Canceled)
}

func TestConfig_Validate(t *testing.T) {
	assert.NoError(t, Config{}.Validate())
	assert.Error(t, Config{Enabled: true}.Validate())
	assert.Error(t, Config{Enabled: true, Broker: "tcp://b:1883", QoS: 3}.Validate())
	_, err := Config{UseTLS: true}.LoadTLSConfig()
	assert.Error(t, err)
}

func TestTopic_FallsBackToSource(t *testing.T) {
	n := &MQTTNotifier{prefix: "p"}
	assert.Equal(t, "p/SP_2_schedule", n.Topic(Artifact{Source: "out/SP_2_schedule.tex"}))
}
