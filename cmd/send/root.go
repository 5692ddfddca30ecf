package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"hookrelay/internal/app"
	"hookrelay/internal/config"
	"hookrelay/internal/domain/notification"

	"github.com/spf13/cobra"
)

// senderFactory builds the sender for a loaded configuration.
type senderFactory func(ctx context.Context, cfg *config.Config) (notification.Sender, func(), error)

func defaultSender(ctx context.Context, cfg *config.Config) (notification.Sender, func(), error) {
	return app.NewDispatcher(ctx, cfg)
}

type sendOptions struct {
	title       string
	body        string
	link        string
	image       string
	imageURL    string
	priority    int
	template    string
	data        []string
	attachments []string
	views       []string
	timeout     time.Duration
}

func newRootCmd(newSender senderFactory) *cobra.Command {
	var opts sendOptions
	cmd := &cobra.Command{
		Use:   "send [body...]",
		Short: "Send one notification to the configured webhook",
		Long: "Send one notification to the webhook described by hookrelay.yaml and the\n" +
			"HOOKRELAY_* environment. The body comes from --body or the positional arguments.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.body == "" {
				opts.body = strings.Join(args, " ")
			}
			msg, err := opts.message()
			if err != nil {
				return err
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			if opts.timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, opts.timeout)
				defer cancel()
			}

			sender, cleanup, err := newSender(ctx, cfg)
			if err != nil {
				return err
			}
			defer cleanup()

			outcome := sender.Send(ctx, msg)
			if !outcome.Delivered {
				return errors.New(outcome.Text())
			}
			fmt.Fprintln(cmd.OutOrStdout(), outcome.Text())
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.title, "title", "", "notification title")
	f.StringVar(&opts.body, "body", "", "notification body")
	f.StringVar(&opts.link, "link", "", "URL the notification points to")
	f.StringVar(&opts.image, "image", "", "local image path")
	f.StringVar(&opts.imageURL, "image-url", "", "remote image URL")
	f.IntVar(&opts.priority, "priority", 0, "priority from 1 (lowest) to 5 (highest)")
	f.StringVar(&opts.template, "template", "", "built-in template: status, question, progress or problem")
	f.StringArrayVar(&opts.data, "data", nil, "template value as key=value (repeatable)")
	f.StringArrayVar(&opts.attachments, "attach", nil, "attachment URL (repeatable)")
	f.StringArrayVar(&opts.views, "view", nil, "view button as label=url (repeatable)")
	f.DurationVar(&opts.timeout, "timeout", 0, "give up after this long (0 waits indefinitely)")
	return cmd
}

// message converts the flags into a notification.
func (o *sendOptions) message() (*notification.Message, error) {
	if strings.TrimSpace(o.body) == "" {
		return nil, errors.New("a body is required: pass --body or positional arguments")
	}

	msg := &notification.Message{
		Title:       o.title,
		Body:        o.body,
		Link:        o.link,
		ImagePath:   o.image,
		ImageURL:    o.imageURL,
		Priority:    o.priority,
		Template:    o.template,
		Attachments: o.attachments,
	}

	if len(o.data) > 0 {
		msg.TemplateData = make(map[string]any, len(o.data))
		for _, kv := range o.data {
			key, value, ok := strings.Cut(kv, "=")
			if !ok || key == "" {
				return nil, fmt.Errorf("invalid --data %q: expected key=value", kv)
			}
			msg.TemplateData[key] = value
		}
	}

	for _, kv := range o.views {
		label, url, ok := strings.Cut(kv, "=")
		if !ok || label == "" || url == "" {
			return nil, fmt.Errorf("invalid --view %q: expected label=url", kv)
		}
		msg.Actions = append(msg.Actions, notification.Action{
			Action: notification.ActionView,
			Label:  label,
			URL:    url,
		})
	}

	return msg, nil
}
