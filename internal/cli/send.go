package cli

import (
	"encoding/json"
	"fmt"

	"github.com/prometheus/client_golang/prometheus/push"
	"github.com/spf13/cobra"

	"github.com/dmitrymomot/pushkit/pkg/logger"
	"github.com/dmitrymomot/pushkit/pkg/webpush"
)

type messageFlags struct {
	title       string
	body        string
	emoji       string
	url         string
	tag         string
	pushgateway string
}

func (f *messageFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.title, "title", "", "notification title")
	cmd.Flags().StringVar(&f.body, "body", "", "notification body")
	cmd.Flags().StringVar(&f.emoji, "emoji", "", "optional emoji shown with the notification")
	cmd.Flags().StringVar(&f.url, "url", "/", "URL opened when the notification is clicked")
	cmd.Flags().StringVar(&f.tag, "tag", "", "optional tag; notifications with the same tag replace each other")
	cmd.Flags().StringVar(&f.pushgateway, "pushgateway", "", "push delivery metrics to this Prometheus Pushgateway URL")
}

func (f *messageFlags) message() (webpush.Message, error) {
	if f.title == "" || f.body == "" {
		return webpush.Message{}, errMissingMessage
	}
	return webpush.Message{
		Title: f.title,
		Body:  f.body,
		Emoji: f.emoji,
		URL:   f.url,
		Tag:   f.tag,
	}, nil
}

func newSendCmd() *cobra.Command {
	var (
		user  string
		flags messageFlags
	)

	cmd := &cobra.Command{
		Use:   "send",
		Short: "Notify every device of one user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if user == "" {
				return errMissingUser
			}
			return runDeliver(cmd, webpush.ToUser(user), &flags)
		},
	}
	cmd.Flags().StringVar(&user, "user", "", "recipient user id")
	flags.register(cmd)
	return cmd
}

func newBroadcastCmd() *cobra.Command {
	var flags messageFlags

	cmd := &cobra.Command{
		Use:   "broadcast",
		Short: "Notify every stored subscription",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDeliver(cmd, webpush.ToAll(), &flags)
		},
	}
	flags.register(cmd)
	return cmd
}

// runDeliver is shared by send and broadcast: one code path for both
// recipient kinds.
func runDeliver(cmd *cobra.Command, to webpush.Recipient, flags *messageFlags) error {
	msg, err := flags.message()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	a, err := newApp(ctx, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer a.close()

	summary, err := a.service.Deliver(ctx, to, msg)
	if err != nil {
		return fmt.Errorf("delivery failed: %w", err)
	}

	if flags.pushgateway != "" {
		if err := push.New(flags.pushgateway, serviceName).Gatherer(a.metrics).PushContext(ctx); err != nil {
			a.log.WarnContext(ctx, "failed to push metrics", logger.Error(err))
		}
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(summary)
}
