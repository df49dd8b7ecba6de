package redpanda

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"
	"github.com/twmb/franz-go/pkg/kmsg"
)

// Requester is the part of *kgo.Client used for admin requests.
type Requester interface {
	Request(ctx context.Context, req kmsg.Request) (kmsg.Response, error)
}

var _ Requester = (*kgo.Client)(nil)

// ensureTopic creates topic, treating TOPIC_ALREADY_EXISTS as success.
func ensureTopic(ctx context.Context, client Requester, topic string, partitions int32, replicationFactor int16) error {
	if topic == "" {
		return fmt.Errorf("topic name cannot be empty")
	}
	if partitions <= 0 || replicationFactor <= 0 {
		return fmt.Errorf("topic %q: partitions and replication factor must be positive", topic)
	}

	req := kmsg.NewCreateTopicsRequest()
	req.TimeoutMillis = 30000
	t := kmsg.NewCreateTopicsRequestTopic()
	t.Topic = topic
	t.NumPartitions = partitions
	t.ReplicationFactor = replicationFactor
	req.Topics = append(req.Topics, t)

	resp, err := client.Request(ctx, &req)
	if err != nil {
		return fmt.Errorf("create topic %q: %w", topic, err)
	}
	created, ok := resp.(*kmsg.CreateTopicsResponse)
	if !ok {
		return fmt.Errorf("create topic %q: unexpected response type %T", topic, resp)
	}
	for _, tr := range created.Topics {
		err := kerr.ErrorForCode(tr.ErrorCode)
		switch {
		case err == nil:
			slog.Info("topic created", slog.String("topic", tr.Topic), slog.Int("partitions", int(partitions)))
		case err == kerr.TopicAlreadyExists:
			slog.Debug("topic already exists", slog.String("topic", tr.Topic))
		default:
			msg := ""
			if tr.ErrorMessage != nil {
				msg = *tr.ErrorMessage
			}
			return fmt.Errorf("create topic %q: %w %s", tr.Topic, err, msg)
		}
	}
	return nil
}
