package webhook

import (
	"context"
	"fmt"
	"time"

	"github.com/citizenwallet/multisig/pkg/multisig"
	"github.com/go-resty/resty/v2"
)

const sendTimeout = 10 * time.Second

type Message struct {
	Content string `json:"content"`
}

type Messager struct {
	BaseURL string
	ChainID string

	notify bool
	client *resty.Client
}

func NewMessager(baseURL, chainID string, notify bool) multisig.WebhookMessager {
	return &Messager{
		BaseURL: baseURL,
		ChainID: chainID,
		notify:  notify && baseURL != "",
		client: resty.New().
			SetTimeout(sendTimeout).
			SetHeader("Content-Type", "application/json"),
	}
}

func (b *Messager) Notify(ctx context.Context, message string) error {
	return b.send(ctx, message)
}

func (b *Messager) NotifyWarning(ctx context.Context, errorMessage error) error {
	return b.send(ctx, "warning: "+errorMessage.Error())
}

func (b *Messager) NotifyError(ctx context.Context, errorMessage error) error {
	return b.send(ctx, "error: "+errorMessage.Error())
}

func (b *Messager) send(ctx context.Context, content string) error {
	if !b.notify {
		return nil
	}

	resp, err := b.client.R().
		SetContext(ctx).
		SetBody(Message{Content: fmt.Sprintf("[%s] %s", b.ChainID, content)}).
		Post(b.BaseURL)
	if err != nil {
		return err
	}

	if !resp.IsSuccess() {
		return fmt.Errorf("error sending message: %s", resp.Status())
	}

	return nil
}
