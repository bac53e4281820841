package events_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jrsteele09/go-taskflow-client/events"
)

func TestSessionExpiredDeliveredInRegistrationOrder(t *testing.T) {
	bus := events.NewBus()

	var order []string
	bus.OnSessionExpired(func(events.SessionExpired) { order = append(order, "first") })
	bus.OnSessionExpired(func(events.SessionExpired) { order = append(order, "second") })
	bus.OnSessionExpired(func(events.SessionExpired) { order = append(order, "third") })

	bus.EmitSessionExpired(events.SessionExpired{Reason: "gone"})
	require.Equal(t, []string{"first", "second", "third"}, order)
}

func TestSessionExpiredCarriesReasonAndError(t *testing.T) {
	bus := events.NewBus()
	cause := errors.New("refresh rejected")

	var got events.SessionExpired
	bus.OnSessionExpired(func(event events.SessionExpired) { got = event })

	bus.NotifySessionExpired("Your session has expired", cause)
	require.Equal(t, "Your session has expired", got.Reason)
	require.ErrorIs(t, got.Err, cause)
}

func TestOffRemovesOnlyItsSubscription(t *testing.T) {
	bus := events.NewBus()

	var first, second int
	offFirst := bus.OnSessionExpired(func(events.SessionExpired) { first++ })
	bus.OnSessionExpired(func(events.SessionExpired) { second++ })

	offFirst()
	offFirst() // second call is a no-op

	bus.EmitSessionExpired(events.SessionExpired{})
	require.Equal(t, 0, first)
	require.Equal(t, 1, second)
}

func TestTokenRefreshedSignal(t *testing.T) {
	bus := events.NewBus()

	var renewals int
	off := bus.OnTokenRefreshed(func(events.TokenRefreshed) { renewals++ })

	bus.NotifyTokenRefreshed()
	bus.EmitTokenRefreshed()
	require.Equal(t, 2, renewals)

	off()
	bus.EmitTokenRefreshed()
	require.Equal(t, 2, renewals)
}

func TestSignalsAreIndependent(t *testing.T) {
	bus := events.NewBus()

	var expired, renewed int
	bus.OnSessionExpired(func(events.SessionExpired) { expired++ })
	bus.OnTokenRefreshed(func(events.TokenRefreshed) { renewed++ })

	bus.EmitTokenRefreshed()
	require.Equal(t, 0, expired)
	require.Equal(t, 1, renewed)
}

func TestSubscribeDuringEmitDoesNotDeadlock(t *testing.T) {
	bus := events.NewBus()

	var late int
	bus.OnSessionExpired(func(events.SessionExpired) {
		bus.OnSessionExpired(func(events.SessionExpired) { late++ })
	})

	bus.EmitSessionExpired(events.SessionExpired{})
	require.Equal(t, 0, late, "handler registered during emit must not receive the in-flight signal")

	bus.EmitSessionExpired(events.SessionExpired{})
	require.Equal(t, 1, late)
}
