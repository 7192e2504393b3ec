package mqttbridge

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/nao-lola/internal/bridge"
	"github.com/banshee-data/nao-lola/internal/bus"
	"github.com/banshee-data/nao-lola/internal/lola"
	"github.com/banshee-data/nao-lola/internal/monitoring"
)

func TestMain(m *testing.M) {
	monitoring.SetLogger(nil)
	m.Run()
}

func TestDecodeUpdate(t *testing.T) {
	tests := []struct {
		group   lola.Group
		payload string
		want    lola.ChannelUpdate
	}{
		{lola.JointPositions, `{"indexes":[0,3],"positions":[0.5,-1]}`,
			lola.JointPositionsUpdate{Indices: []int{0, 3}, Positions: []float32{0.5, -1}}},
		{lola.JointStiffnesses, `{"indexes":[24],"stiffnesses":[1]}`,
			lola.JointStiffnessesUpdate{Indices: []int{24}, Stiffnesses: []float32{1}}},
		{lola.ChestLed, `{"color":{"r":1,"g":0.5,"b":0}}`,
			lola.ChestLedUpdate{Color: lola.Color{R: 1, G: 0.5}}},
		{lola.LeftEarLeds, `{"indexes":[1],"intensities":[0.25]}`,
			lola.LeftEarLedsUpdate{Indices: []int{1}, Intensities: []float32{0.25}}},
		{lola.RightEarLeds, `{"indexes":[],"intensities":[]}`,
			lola.RightEarLedsUpdate{Indices: []int{}, Intensities: []float32{}}},
		{lola.LeftEyeLeds, `{"indexes":[7],"colors":[{"r":0,"g":0,"b":1}]}`,
			lola.LeftEyeLedsUpdate{Indices: []int{7}, Colors: []lola.Color{{B: 1}}}},
		{lola.RightEyeLeds, `{"indexes":[0],"colors":[{"r":1,"g":1,"b":1}]}`,
			lola.RightEyeLedsUpdate{Indices: []int{0}, Colors: []lola.Color{{R: 1, G: 1, B: 1}}}},
		{lola.LeftFootLed, `{"color":{"r":0,"g":1,"b":0}}`,
			lola.LeftFootLedUpdate{Color: lola.Color{G: 1}}},
		{lola.RightFootLed, `{"color":{"r":0,"g":0,"b":0}}`,
			lola.RightFootLedUpdate{}},
		{lola.HeadLeds, `{"indexes":[11],"intensities":[1]}`,
			lola.HeadLedsUpdate{Indices: []int{11}, Intensities: []float32{1}}},
		{lola.SonarUsage, `{"left":true,"right":false}`,
			lola.SonarUsageUpdate{Left: true}},
	}
	for _, tt := range tests {
		t.Run(tt.group.String(), func(t *testing.T) {
			got, err := DecodeUpdate(tt.group, []byte(tt.payload))
			require.NoError(t, err)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("DecodeUpdate mismatch (-want +got):\n%s", diff)
			}
			assert.Equal(t, tt.group, got.Group())
		})
	}
}

func TestDecodeUpdate_Malformed(t *testing.T) {
	for _, payload := range []string{
		`not json`,
		`{"indexes":[0],"positions":["a"]}`,
		`{"indexes":[0],"angles":[0.5]}`,
	} {
		if _, err := DecodeUpdate(lola.JointPositions, []byte(payload)); err == nil {
			t.Errorf("DecodeUpdate(%s): expected error", payload)
		}
	}
	_, err := DecodeUpdate(lola.Group(99), []byte(`{}`))
	assert.ErrorIs(t, err, lola.ErrUnknownUpdate)
}

func TestHandleEffector_PublishesOnBus(t *testing.T) {
	b := bus.New()
	sub := b.Subscribe(bridge.EffectorTopic(lola.SonarUsage), 1)
	m := New(Config{Prefix: "robot7/"}, b)

	require.NoError(t, m.HandleEffector("robot7/effectors/sonar_usage", []byte(`{"left":true,"right":true}`)))
	select {
	case msg := <-sub.Channel():
		assert.Equal(t, lola.SonarUsageUpdate{Left: true, Right: true}, msg.Payload)
	case <-time.After(time.Second):
		t.Fatal("update not published")
	}

	assert.Error(t, m.HandleEffector("robot7/effectors/tail_wag", []byte(`{}`)))
	assert.Error(t, m.HandleEffector("other/effectors/sonar_usage", []byte(`{}`)))
	assert.Error(t, m.HandleEffector("robot7/effectors/sonar_usage", []byte(`{`)))

	st := m.Stats()
	assert.Equal(t, uint64(4), st.Received)
	assert.Equal(t, uint64(3), st.Malformed)
	assert.False(t, st.Connected)
}

func TestHandleEffector_DrivesBridge(t *testing.T) {
	b := bus.New()
	br := bridge.New(bridge.Config{Bus: b})
	ctx, cancel := context.WithCancel(context.Background())
	br.Start(ctx)
	defer func() {
		cancel()
		br.Close()
	}()

	m := New(Config{}, b)
	require.NoError(t, m.HandleEffector("nao/effectors/chest_led", []byte(`{"color":{"r":0,"g":0,"b":1}}`)))
	require.Eventually(t, func() bool { return br.Stats().UpdatesApplied == 1 }, 2*time.Second, 5*time.Millisecond)

	frame, _ := br.Accumulator().Swap()
	assert.Equal(t, []float32{0, 0, 1}, frame.Chest)
}

type recordingPublisher struct {
	mu   sync.Mutex
	msgs map[string][]byte
	fail bool
}

func (p *recordingPublisher) publish(topic string, payload []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail {
		return errors.New("broker unavailable")
	}
	p.msgs[topic] = payload
	return nil
}

func (p *recordingPublisher) get(topic string) ([]byte, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	b, ok := p.msgs[topic]
	return b, ok
}

func TestRun_ForwardsSensors(t *testing.T) {
	b := bus.New()
	m := New(Config{Prefix: "nao"}, b)
	pub := &recordingPublisher{msgs: make(map[string][]byte)}
	m.publish = pub.publish

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.Run(ctx)
		close(done)
	}()

	// Subscriptions are set up asynchronously; publish until one lands.
	require.Eventually(t, func() bool {
		b.Publish(bridge.SensorTopic("battery"), lola.Battery{Charge: 0.5})
		_, ok := pub.get("nao/sensors/battery")
		return ok
	}, 2*time.Second, 5*time.Millisecond)

	data, _ := pub.get("nao/sensors/battery")
	var got lola.Battery
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, lola.Battery{Charge: 0.5}, got)

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return")
	}
	assert.NotZero(t, m.Stats().Published)
}

func TestRun_CountsPublishErrors(t *testing.T) {
	b := bus.New()
	m := New(Config{}, b)
	pub := &recordingPublisher{msgs: make(map[string][]byte), fail: true}
	m.publish = pub.publish

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.Run(ctx)
		close(done)
	}()
	require.Eventually(t, func() bool {
		b.Publish(bridge.SensorTopic("sonar"), lola.Sonar{Left: 1})
		return m.Stats().PublishErrors > 0
	}, 2*time.Second, 5*time.Millisecond)
	cancel()
	<-done
	assert.Zero(t, m.Stats().Published)
}

func TestMQTTPublish_NotConnected(t *testing.T) {
	m := New(Config{}, bus.New())
	assert.Error(t, m.mqttPublish("nao/sensors/sonar", []byte(`{}`)))
}

func TestTopics(t *testing.T) {
	m := New(Config{Prefix: "team/nao3/"}, bus.New())
	assert.Equal(t, "team/nao3/effectors/+", m.EffectorFilter())
	assert.Equal(t, "team/nao3/sensors/fsr", m.SensorTopic("fsr"))
	assert.Equal(t, "tcp://localhost:1883", brokerURL("localhost:1883"))
	assert.Equal(t, "ssl://broker:8883", brokerURL("ssl://broker:8883"))
}
