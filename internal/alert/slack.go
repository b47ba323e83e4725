package alert

import (
	"context"
	"fmt"
	"strings"

	"github.com/slack-go/slack"

	"github.com/flotilla-dev/flotilla/internal/types"
)

// sendSlack posts a {text, blocks} payload to a Slack incoming webhook.
func sendSlack(ctx context.Context, url string, alert types.Alert) error {
	f := Format(alert)

	blocks := []slack.Block{
		slack.NewHeaderBlock(slack.NewTextBlockObject(slack.PlainTextType, f.Header, false, false)),
	}
	if len(f.Lines) > 0 {
		blocks = append(blocks, slack.NewSectionBlock(
			slack.NewTextBlockObject(slack.MarkdownType, strings.Join(f.Lines, "\n"), false, false),
			nil, nil))
	}

	msg := &slack.WebhookMessage{
		Text:   f.Text(),
		Blocks: &slack.Blocks{BlockSet: blocks},
	}
	if err := slack.PostWebhookContext(ctx, url, msg); err != nil {
		return fmt.Errorf("post slack webhook: %w", err)
	}
	return nil
}
