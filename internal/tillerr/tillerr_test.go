package tillerr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf_Wrapped(t *testing.T) {
	err := fmt.Errorf("sell: %w", User("not enough stock on display: %d short", 1))
	assert.Equal(t, KindUser, KindOf(err))
	assert.True(t, Is(err, KindUser))
	assert.False(t, Is(err, KindState))
	assert.Equal(t, "not enough stock on display: 1 short", MessageOf(err))
}

func TestKindOf_PlainError(t *testing.T) {
	err := errors.New("boom")
	assert.Equal(t, Kind(""), KindOf(err))
	assert.Equal(t, "boom", MessageOf(err))
}

func TestBug_IncludesModifier(t *testing.T) {
	err := Bug("half", "quantity must be whole")
	assert.Equal(t, KindBug, err.Kind)
	assert.Contains(t, err.Error(), `modifier "half"`)
	assert.Equal(t, `modifier "half": quantity must be whole`, MessageOf(err))
}

func TestConcurrent_Unwraps(t *testing.T) {
	cause := errors.New("unique violation")
	err := Concurrent("transaction taken over", cause)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, KindConcurrency, KindOf(err))
}

func TestHTTPStatus(t *testing.T) {
	assert.Equal(t, 400, HTTPStatus(User("bad")))
	assert.Equal(t, 409, HTTPStatus(State("closed")))
	assert.Equal(t, 409, HTTPStatus(Concurrent("reload", nil)))
	assert.Equal(t, 502, HTTPStatus(Integration("printer", nil)))
	assert.Equal(t, 500, HTTPStatus(Bug("half", "oops")))
	assert.Equal(t, 500, HTTPStatus(errors.New("plain")))

	body := BodyOf(Concurrent("someone else did it first", errors.New("23000")))
	assert.True(t, body.Reload)
	assert.Equal(t, "someone else did it first", body.Error)

	body = BodyOf(Bug("half", "left an invalid sale"))
	assert.Contains(t, body.Error, "half")
	assert.False(t, body.Reload)
}
