package main

import (
	"context"
	"errors"
	"io"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-procure/pkg/form"
	"github.com/goliatone/go-procure/pkg/prompt"
)

var fillDryRun bool

var fillCmd = &cobra.Command{
	Use:   "fill [form]",
	Short: "Fill and submit a form interactively",
	Long: `Prompts for every visible field of a form, validating each answer as it is
given, then submits the payload to the API.

Forms: requisition types (achat, special, facilitation, rh, other),
purchase-order, and every declarative form listed by "procure types".`,
	Args: cobra.ExactArgs(1),
	RunE: runFill,
}

func init() {
	fillCmd.Flags().BoolVar(&fillDryRun, "dry-run", false, "print the payload instead of submitting it")
}

func runFill(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	reg, err := loadRegistry(ctx)
	if err != nil {
		return err
	}
	schema, err := reg.Schema(args[0])
	if err != nil {
		return err
	}
	client, err := newClient()
	if err != nil {
		return err
	}
	catalog, err := loadCatalog(ctx, client, schema)
	if err != nil {
		return err
	}

	inst, err := reg.Mount(args[0], cfg.Session,
		form.WithLookup(catalog),
		form.WithDecorators(catalog.Decorator()),
		form.WithLogger(logger),
	)
	if err != nil {
		return err
	}

	driver := prompt.NewSurveyDriver(cmd.OutOrStdout())
	return fillAndSubmit(ctx, cmd.OutOrStdout(), driver, inst, client.SubmitFunc(inst.Schema()), fillDryRun)
}

var errInvalidForm = errors.New("form is invalid")

// fillAndSubmit drives a form to a successful submission. Invalid records
// and rejected submissions keep every answer and offer another round.
func fillAndSubmit(ctx context.Context, w io.Writer, driver prompt.Driver, inst *form.Instance, submit form.SubmitFunc, dryRun bool) error {
	filler := prompt.NewFiller(driver, prompt.WithLogger(logger))
	if err := filler.Fill(ctx, inst); err != nil {
		return err
	}

	for {
		result := inst.Validate()
		if !result.Valid() {
			if err := renderErrors(w, result.Errors); err != nil {
				return err
			}
			again, err := driver.Confirm(ctx, prompt.ConfirmConfig{Message: "Review the form again?", Default: true})
			if err != nil {
				return err
			}
			if !again {
				return errInvalidForm
			}
			if err := filler.Fill(ctx, inst); err != nil {
				return err
			}
			continue
		}

		payload, err := inst.Payload()
		if err != nil {
			return err
		}
		if err := renderPayload(w, payload); err != nil {
			return err
		}
		if dryRun {
			return nil
		}
		send, err := driver.Confirm(ctx, prompt.ConfirmConfig{Message: "Submit?", Default: true})
		if err != nil || !send {
			return err
		}

		outcome := inst.Submit(ctx, submit)
		if err := renderNotification(w, outcome.Notification); err != nil {
			return err
		}
		switch outcome.Status {
		case form.StatusSubmitted:
			return nil
		case form.StatusRejected:
			retry, err := driver.Confirm(ctx, prompt.ConfirmConfig{Message: "Retry?", Default: true})
			if err != nil {
				return err
			}
			if !retry {
				return outcome.Err
			}
		case form.StatusInvalid:
			if err := filler.Fill(ctx, inst); err != nil {
				return err
			}
		default:
			return outcome.Err
		}
	}
}
