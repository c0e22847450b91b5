package pubsub

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestResourcePath(t *testing.T) {
	cases := []struct {
		name    string
		project string
		kind    string
		in      string
		want    string
	}{
		{"topic id", "trail-dev", "topics", "st-checkin-events", "projects/trail-dev/topics/st-checkin-events"},
		{"topic full path", "trail-dev", "topics", "projects/other/topics/x", "projects/other/topics/x"},
		{"subscription id trimmed", "trail-dev", "subscriptions", " st-checkin-analytics ", "projects/trail-dev/subscriptions/st-checkin-analytics"},
		{"subscription full path", "trail-dev", "subscriptions", "projects/p/subscriptions/s", "projects/p/subscriptions/s"},
		{"wrong kind is treated as id", "trail-dev", "subscriptions", "projects/p/topics/s", "projects/trail-dev/subscriptions/projects/p/topics/s"},
		{"blank", "trail-dev", "topics", "  ", ""},
		{"no project", "", "topics", "x", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, resourcePath(tc.project, tc.kind, tc.in))
		})
	}
}

func TestClientResourceNames(t *testing.T) {
	c := &Client{projectID: "trail-dev"}
	require.Equal(t, "projects/trail-dev/topics/t", c.topicResourceName("t"))
	require.Equal(t, "projects/trail-dev/subscriptions/s", c.subscriptionResourceName("s"))
}

func TestLookupErr(t *testing.T) {
	require.NoError(t, lookupErr("topic", "t", nil))

	missing := lookupErr("topic", "t", status.Error(codes.NotFound, "gone"))
	require.EqualError(t, missing, `topic "t" does not exist`)

	cause := status.Error(codes.PermissionDenied, "nope")
	denied := lookupErr("subscription", "s", cause)
	require.True(t, errors.Is(denied, cause))
}

func TestNilClientHandles(t *testing.T) {
	var c *Client
	require.Nil(t, c.Publisher("t"))
	require.Nil(t, c.Subscription("s"))
	require.Nil(t, c.CheckInsPublisher())
	require.ErrorIs(t, c.Ping(context.Background()), errNotInitialized)
	require.NoError(t, c.Close())
}
