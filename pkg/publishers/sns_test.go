package publishers

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"

	"github.com/jibang-data/regional-news-pipeline/internal/domain"
)

type fakeSNSClient struct {
	input *sns.PublishInput
	err   error
}

func (f *fakeSNSClient) Publish(_ context.Context, params *sns.PublishInput, _ ...func(*sns.Options)) (*sns.PublishOutput, error) {
	f.input = params
	if f.err != nil {
		return nil, f.err
	}
	return &sns.PublishOutput{MessageId: aws.String("msg-123")}, nil
}

func TestSNSPublisherSuccess(t *testing.T) {
	client := &fakeSNSClient{}
	pub := &snsPublisher{
		id:       "alerts",
		typ:      TypeSNS,
		topicARN: "arn:aws:sns:::news-alerts",
		client:   client,
		log:      noopLogger{},
	}

	evt := NewEvent("gangwon-times", domain.Record{
		URL:    "https://news.example/articles/1",
		Region: "강원",
	})
	if err := pub.Publish(context.Background(), evt); err != nil {
		t.Fatalf("Publish returned error: %v", err)
	}
	if client.input == nil {
		t.Fatalf("client was not called")
	}
	if got := aws.ToString(client.input.TopicArn); got != "arn:aws:sns:::news-alerts" {
		t.Fatalf("TopicArn = %s", got)
	}
	attr, ok := client.input.MessageAttributes["region"]
	if !ok || aws.ToString(attr.StringValue) != "강원" {
		t.Fatalf("region attribute missing or wrong: %#v", attr)
	}
	if !strings.Contains(aws.ToString(client.input.Message), `"site":"gangwon-times"`) {
		t.Fatalf("Message missing site: %s", aws.ToString(client.input.Message))
	}
}

func TestSNSPublisherError(t *testing.T) {
	client := &fakeSNSClient{err: errors.New("boom")}
	pub := &snsPublisher{
		id:       "alerts",
		typ:      TypeSNS,
		topicARN: "arn:aws:sns:::news-alerts",
		client:   client,
		log:      noopLogger{},
	}

	if err := pub.Publish(context.Background(), NewEvent("s", domain.Record{})); err == nil {
		t.Fatalf("expected error from Publish")
	}
}
