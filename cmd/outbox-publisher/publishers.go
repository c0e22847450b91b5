package main

import (
	"context"

	gcppubsub "cloud.google.com/go/pubsub/v2"
)

type pinger interface {
	Ping(context.Context) error
}

type publishResult interface {
	Get(context.Context) (string, error)
}

type publisher interface {
	Publish(context.Context, *gcppubsub.Message) publishResult
}

type topicPublishers interface {
	For(topic string) publisher
}

type pubsubClient interface {
	CheckInsPublisher() *gcppubsub.Publisher
	Publisher(name string) *gcppubsub.Publisher
}

// pubsubTopics resolves topics to the client's shared publishers.
type pubsubTopics struct {
	client   pubsubClient
	checkIns string
}

func newPubSubTopics(client pubsubClient, checkInsTopic string) pubsubTopics {
	return pubsubTopics{client: client, checkIns: checkInsTopic}
}

func (t pubsubTopics) For(topic string) publisher {
	var raw *gcppubsub.Publisher
	if topic == t.checkIns {
		raw = t.client.CheckInsPublisher()
	} else {
		raw = t.client.Publisher(topic)
	}
	if raw == nil {
		return nil
	}
	return gcpTopic{raw}
}

type gcpTopic struct {
	p *gcppubsub.Publisher
}

func (g gcpTopic) Publish(ctx context.Context, msg *gcppubsub.Message) publishResult {
	return g.p.Publish(ctx, msg)
}
