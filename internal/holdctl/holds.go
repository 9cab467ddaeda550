package holdctl

import (
	"fmt"
	"lodgr/pkg/model"
	"strings"

	"github.com/spf13/cobra"
)

// parseBlocks reads --block values of the form start:end[:kind[:reference]].
func parseBlocks(values []string) ([]model.BlockInput, error) {
	blocks := make([]model.BlockInput, 0, len(values))
	for _, v := range values {
		parts := strings.SplitN(v, ":", 4)
		if len(parts) < 2 {
			return nil, fmt.Errorf("invalid --block %q (want start:end[:kind[:reference]])", v)
		}
		b := model.BlockInput{StartDate: parts[0], EndDate: parts[1]}
		if len(parts) > 2 {
			b.Kind = model.BlockKind(parts[2])
		}
		if len(parts) > 3 {
			b.Reference = parts[3]
		}
		blocks = append(blocks, b)
	}
	return blocks, nil
}

func newCheckCmd(opts *globalOptions) *cobra.Command {
	var blocks []string

	c := &cobra.Command{
		Use:   "check UNIT START END",
		Short: "Check whether a unit is free for [START, END)",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			committed, err := parseBlocks(blocks)
			if err != nil {
				return err
			}
			ctx, cancel := opts.context(cmd)
			defer cancel()

			resp, err := opts.client().Check(ctx, args[0], model.CheckRequest{
				StartDate:       args[1],
				EndDate:         args[2],
				CommittedBlocks: committed,
			})
			if err != nil {
				return err
			}
			return printJSON(cmd, resp)
		},
	}
	c.Flags().StringArrayVar(&blocks, "block", nil, "committed block start:end[:kind[:reference]] (repeatable)")
	return c
}

func newHoldCmd(opts *globalOptions) *cobra.Command {
	var (
		blocks         []string
		ttlMinutes     int
		idempotencyKey string
	)

	c := &cobra.Command{
		Use:   "hold UNIT START END",
		Short: "Place a hold on [START, END)",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			committed, err := parseBlocks(blocks)
			if err != nil {
				return err
			}
			req := model.HoldRequest{
				StartDate:       args[1],
				EndDate:         args[2],
				CommittedBlocks: committed,
			}
			if cmd.Flags().Changed("ttl") {
				req.TTLMinutes = &ttlMinutes
			}

			ctx, cancel := opts.context(cmd)
			defer cancel()

			resp, err := opts.client().Hold(ctx, args[0], req, idempotencyKey)
			if err != nil {
				return err
			}
			return printJSON(cmd, resp)
		},
	}
	c.Flags().StringArrayVar(&blocks, "block", nil, "committed block start:end[:kind[:reference]] (repeatable)")
	c.Flags().IntVar(&ttlMinutes, "ttl", 15, "hold lifetime in minutes (clamped to 60)")
	c.Flags().StringVar(&idempotencyKey, "idempotency-key", "", "makes the hold safe to retry")
	return c
}

func newConfirmCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "confirm UNIT TOKEN BOOKING_ID",
		Short: "Confirm a hold against a booking",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := opts.context(cmd)
			defer cancel()

			resp, err := opts.client().Confirm(ctx, args[0], args[1], args[2])
			if err != nil {
				return err
			}
			return printJSON(cmd, resp)
		},
	}
}

func newReleaseCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "release UNIT TOKEN",
		Short: "Release a hold",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := opts.context(cmd)
			defer cancel()

			resp, err := opts.client().Release(ctx, args[0], args[1])
			if err != nil {
				return err
			}
			return printJSON(cmd, resp)
		},
	}
}

func newListCmd(opts *globalOptions) *cobra.Command {
	var startDate, endDate string

	c := &cobra.Command{
		Use:   "list UNIT",
		Short: "List a unit's active holds",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if (startDate == "") != (endDate == "") {
				return fmt.Errorf("--start and --end must be given together")
			}
			ctx, cancel := opts.context(cmd)
			defer cancel()

			resp, err := opts.client().ListHolds(ctx, args[0], startDate, endDate)
			if err != nil {
				return err
			}
			return printJSON(cmd, resp)
		},
	}
	c.Flags().StringVar(&startDate, "start", "", "only holds overlapping from this date (YYYY-MM-DD)")
	c.Flags().StringVar(&endDate, "end", "", "only holds overlapping before this date (YYYY-MM-DD)")
	return c
}
