package events

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/gometeo/weatherlookup/internal/model"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestKafkaPublisher_Publish(t *testing.T) {
	config := mocks.NewTestConfig()
	config.Producer.Return.Errors = true
	producer := mocks.NewAsyncProducer(t, config)

	var got *sarama.ProducerMessage
	producer.ExpectInputWithMessageCheckerFunctionAndSucceed(func(msg *sarama.ProducerMessage) error {
		got = msg
		return nil
	})

	p := newKafkaPublisher(producer, "weather_lookups", testLogger())
	at := time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)
	p.Publish(context.Background(), model.LookupEvent{
		Kind:     model.LookupWeather,
		Lat:      "51.5",
		Lon:      "-0.12",
		CacheHit: true,
		At:       at,
	})
	require.NoError(t, p.Close())

	require.NotNil(t, got)
	assert.Equal(t, "weather_lookups", got.Topic)

	key, err := got.Key.Encode()
	require.NoError(t, err)
	assert.Equal(t, "weather:51.5,-0.12", string(key))

	value, err := got.Value.Encode()
	require.NoError(t, err)
	var ev model.LookupEvent
	require.NoError(t, json.Unmarshal(value, &ev))
	assert.Equal(t, model.LookupWeather, ev.Kind)
	assert.True(t, ev.CacheHit)
	assert.True(t, at.Equal(ev.At))
}

func TestKafkaPublisher_DeliveryErrorIsLoggedOnly(t *testing.T) {
	config := mocks.NewTestConfig()
	config.Producer.Return.Errors = true
	producer := mocks.NewAsyncProducer(t, config)
	producer.ExpectInputAndFail(sarama.ErrOutOfBrokers)

	p := newKafkaPublisher(producer, "weather_lookups", testLogger())
	p.Publish(context.Background(), model.LookupEvent{Kind: model.LookupSearch, Query: "london"})

	assert.NoError(t, p.Close())
}

func TestKafkaPublisher_PublishAfterCloseIsDropped(t *testing.T) {
	config := mocks.NewTestConfig()
	config.Producer.Return.Errors = true
	producer := mocks.NewAsyncProducer(t, config)

	p := newKafkaPublisher(producer, "weather_lookups", testLogger())
	require.NoError(t, p.Close())

	assert.NotPanics(t, func() {
		p.Publish(context.Background(), model.LookupEvent{Kind: model.LookupSearch, Query: "late"})
	})
	assert.NoError(t, p.Close())
}

func TestNopPublisher(t *testing.T) {
	assert.NotPanics(t, func() {
		NopPublisher{}.Publish(context.Background(), model.LookupEvent{Kind: model.LookupSearch})
	})
}

type mockRecorder struct {
	mock.Mock
}

func (m *mockRecorder) Record(ctx context.Context, ev model.LookupEvent) error {
	return m.Called(ctx, ev).Error(0)
}

func message(t *testing.T, offset int64, ev any) *sarama.ConsumerMessage {
	t.Helper()
	var value []byte
	switch v := ev.(type) {
	case string:
		value = []byte(v)
	default:
		b, err := json.Marshal(v)
		require.NoError(t, err)
		value = b
	}
	return &sarama.ConsumerMessage{Topic: "weather_lookups", Offset: offset, Value: value}
}

func TestConsumerHandler_Handle(t *testing.T) {
	rec := new(mockRecorder)
	h := NewConsumerHandler(rec, testLogger())
	ctx := context.Background()

	ok := model.LookupEvent{Kind: model.LookupSearch, Query: "london"}
	failing := model.LookupEvent{Kind: model.LookupWeather, Lat: "1", Lon: "2"}
	rec.On("Record", ctx, ok).Return(nil)
	rec.On("Record", ctx, failing).Return(errors.New("connection refused"))

	assert.True(t, h.handle(ctx, message(t, 1, ok)))
	assert.False(t, h.handle(ctx, message(t, 2, failing)))
	assert.True(t, h.handle(ctx, message(t, 3, "{broken")))
	assert.True(t, h.handle(ctx, message(t, 4, model.LookupEvent{Kind: "forecast"})))

	rec.AssertNumberOfCalls(t, "Record", 2)
}

type fakeSession struct {
	ctx    context.Context
	marked []int64
}

func (s *fakeSession) Claims() map[string][]int32                        { return nil }
func (s *fakeSession) MemberID() string                                  { return "member" }
func (s *fakeSession) GenerationID() int32                               { return 1 }
func (s *fakeSession) MarkOffset(string, int32, int64, string)           {}
func (s *fakeSession) Commit()                                           {}
func (s *fakeSession) ResetOffset(string, int32, int64, string)          {}
func (s *fakeSession) MarkMessage(msg *sarama.ConsumerMessage, _ string) { s.marked = append(s.marked, msg.Offset) }
func (s *fakeSession) Context() context.Context                          { return s.ctx }

type fakeClaim struct {
	messages chan *sarama.ConsumerMessage
}

func (c *fakeClaim) Topic() string                            { return "weather_lookups" }
func (c *fakeClaim) Partition() int32                         { return 0 }
func (c *fakeClaim) InitialOffset() int64                     { return 0 }
func (c *fakeClaim) HighWaterMarkOffset() int64               { return 0 }
func (c *fakeClaim) Messages() <-chan *sarama.ConsumerMessage { return c.messages }

func TestConsumerHandler_ConsumeClaim_MarksOnlyHandled(t *testing.T) {
	rec := new(mockRecorder)
	h := NewConsumerHandler(rec, testLogger())
	sess := &fakeSession{ctx: context.Background()}

	good := model.LookupEvent{Kind: model.LookupReverse, Lat: "51.5", Lon: "-0.12", Label: "London"}
	bad := model.LookupEvent{Kind: model.LookupWeather, Lat: "0", Lon: "0"}
	rec.On("Record", mock.Anything, good).Return(nil)
	rec.On("Record", mock.Anything, bad).Return(errors.New("db down"))

	claim := &fakeClaim{messages: make(chan *sarama.ConsumerMessage, 3)}
	claim.messages <- message(t, 10, good)
	claim.messages <- message(t, 11, bad)
	claim.messages <- message(t, 12, "not json")
	close(claim.messages)

	require.NoError(t, h.ConsumeClaim(sess, claim))
	assert.Equal(t, []int64{10, 12}, sess.marked)
}
