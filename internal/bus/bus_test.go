package bus

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MuganziJames/Umoja-AI/internal/auth"
)

func TestPublishToMatchingTopic(t *testing.T) {
	b := New()
	signIns, _ := b.Subscribe(TopicUserSignedIn)
	authChanges, _ := b.Subscribe(TopicAuthStateChanged)

	user := &auth.User{ID: "u1", Email: "amina@example.com"}
	b.Publish(Event{Topic: TopicUserSignedIn, User: user})

	select {
	case ev := <-signIns:
		assert.Equal(t, TopicUserSignedIn, ev.Topic)
		require.NotNil(t, ev.User)
		assert.Equal(t, "u1", ev.User.ID)
	default:
		t.Fatal("sign-in subscriber received nothing")
	}

	select {
	case ev := <-authChanges:
		t.Fatalf("auth-change subscriber received off-topic event %q", ev.Topic)
	default:
	}
}

func TestSubscribeAllTopics(t *testing.T) {
	b := New()
	all, _ := b.Subscribe()

	b.Publish(Event{Topic: TopicUserSignedIn})
	b.Publish(Event{Topic: TopicAuthStateChanged})

	assert.Len(t, all, 2)
}

func TestPublishWithoutSubscribers(t *testing.T) {
	b := New()
	// Must not panic or block.
	b.Publish(Event{Topic: TopicAuthStateChanged})
}

func TestSlowSubscriberDropsInsteadOfBlocking(t *testing.T) {
	b := New()
	ch, _ := b.Subscribe(TopicAuthStateChanged)

	// Well past the buffer size; Publish must return every time.
	for i := 0; i < 50; i++ {
		b.Publish(Event{Topic: TopicAuthStateChanged})
	}

	assert.Len(t, ch, cap(ch))
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	b := New()
	ch, unsubscribe := b.Subscribe(TopicUserSignedIn)

	b.Publish(Event{Topic: TopicUserSignedIn})
	require.Len(t, ch, 1)
	<-ch

	unsubscribe()
	b.Publish(Event{Topic: TopicUserSignedIn})
	assert.Empty(t, ch)

	// Unsubscribing twice is a no-op.
	unsubscribe()
	b.Publish(Event{Topic: TopicUserSignedIn})
	assert.Empty(t, ch)
}

func TestUnsubscribeLeavesOtherSubscribersIntact(t *testing.T) {
	b := New()
	first, cancelFirst := b.Subscribe(TopicAuthStateChanged)
	second, _ := b.Subscribe(TopicAuthStateChanged)

	cancelFirst()
	b.Publish(Event{Topic: TopicAuthStateChanged})

	assert.Empty(t, first)
	assert.Len(t, second, 1)
}

func TestSignedOutEventCarriesNilUser(t *testing.T) {
	b := New()
	ch, _ := b.Subscribe(TopicAuthStateChanged)

	b.Publish(Event{Topic: TopicAuthStateChanged, User: nil})

	ev := <-ch
	assert.Nil(t, ev.User)
}
