package publishers

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"github.com/jibang-data/regional-news-pipeline/internal/domain"
)

type fakeSQSClient struct {
	input *sqs.SendMessageInput
	err   error
}

func (f *fakeSQSClient) SendMessage(_ context.Context, params *sqs.SendMessageInput, _ ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	f.input = params
	if f.err != nil {
		return nil, f.err
	}
	return &sqs.SendMessageOutput{MessageId: aws.String("msg-123")}, nil
}

func TestSQSPublisherSuccess(t *testing.T) {
	client := &fakeSQSClient{}
	pub := &sqsPublisher{
		id:       "analyzer-queue",
		typ:      TypeSQS,
		queueURL: "https://sqs.ap-northeast-2.amazonaws.com/123/news",
		client:   client,
		log:      noopLogger{},
	}

	evt := NewEvent("chungcheong-ilbo", domain.Record{
		URL:    "https://news.example/articles/1",
		Region: "충청",
	})
	if err := pub.Publish(context.Background(), evt); err != nil {
		t.Fatalf("Publish returned error: %v", err)
	}
	if client.input == nil {
		t.Fatalf("client was not called")
	}
	if got := aws.ToString(client.input.QueueUrl); got != pub.queueURL {
		t.Fatalf("QueueUrl = %s", got)
	}
	attr, ok := client.input.MessageAttributes["region"]
	if !ok || aws.ToString(attr.StringValue) != "충청" {
		t.Fatalf("region attribute missing or wrong: %#v", attr)
	}
	if !strings.Contains(aws.ToString(client.input.MessageBody), `"https://news.example/articles/1"`) {
		t.Fatalf("MessageBody missing article url: %s", aws.ToString(client.input.MessageBody))
	}
}

func TestSQSPublisherError(t *testing.T) {
	client := &fakeSQSClient{err: errors.New("boom")}
	pub := &sqsPublisher{
		id:       "analyzer-queue",
		typ:      TypeSQS,
		queueURL: "https://sqs.ap-northeast-2.amazonaws.com/123/news",
		client:   client,
		log:      noopLogger{},
	}

	if err := pub.Publish(context.Background(), NewEvent("s", domain.Record{})); err == nil {
		t.Fatalf("expected error from Publish")
	}
}
