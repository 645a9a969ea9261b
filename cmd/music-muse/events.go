package main

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/justestif/go-music-muse/internal/db"
)

const dateLayout = "2006-01-02"

func newEventsCmd(a *app) *cobra.Command {
	var userID string

	cmd := &cobra.Command{
		Use:   "events",
		Short: "Manage the life events questions can refer to",
	}
	cmd.PersistentFlags().StringVar(&userID, "user", "", "user id owning the events")
	_ = cmd.MarkPersistentFlagRequired("user")

	cmd.AddCommand(
		newEventsAddCmd(a, &userID),
		newEventsListCmd(a, &userID),
		newEventsDeleteCmd(a, &userID),
	)
	return cmd
}

func newEventsAddCmd(a *app, userID *string) *cobra.Command {
	var (
		start, end  string
		description string
		category    string
	)

	cmd := &cobra.Command{
		Use:   "add NAME",
		Short: "Add an event (omit --end for one that is still ongoing)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ev, err := newEvent(*userID, args[0], start, end)
			if err != nil {
				return err
			}
			if description != "" {
				ev.Description = &description
			}
			if category != "" {
				ev.Category = &category
			}

			database, err := a.openDB(cmd.Context())
			if err != nil {
				return err
			}
			defer database.Close()

			if err := database.Events().Create(cmd.Context(), ev); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "added %s (%s)\n", ev.Name, ev.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&start, "start", "", "first day, YYYY-MM-DD")
	cmd.Flags().StringVar(&end, "end", "", "last day, YYYY-MM-DD")
	cmd.Flags().StringVar(&description, "description", "", "free-form description")
	cmd.Flags().StringVar(&category, "category", "", "category such as travel or work")
	_ = cmd.MarkFlagRequired("start")
	return cmd
}

func newEventsListCmd(a *app, userID *string) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List a user's events, most recent first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			database, err := a.openDB(cmd.Context())
			if err != nil {
				return err
			}
			defer database.Close()

			events, err := database.Events().ListForUser(cmd.Context(), *userID)
			if err != nil {
				return err
			}
			printEvents(cmd.OutOrStdout(), events)
			return nil
		},
	}
}

func newEventsDeleteCmd(a *app, userID *string) *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete an event by id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid event id %q: %w", args[0], err)
			}

			database, err := a.openDB(cmd.Context())
			if err != nil {
				return err
			}
			defer database.Close()

			err = database.Events().Delete(cmd.Context(), *userID, id)
			if errors.Is(err, db.ErrNotFound) {
				return fmt.Errorf("no event %s for user %s", id, *userID)
			}
			return err
		},
	}
}

// newEvent validates the flag values of "events add".
func newEvent(userID, name, start, end string) (*db.Event, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.New("event name is required")
	}

	startDate, err := time.Parse(dateLayout, start)
	if err != nil {
		return nil, fmt.Errorf("parsing --start: %w", err)
	}
	ev := &db.Event{UserID: userID, Name: name, StartDate: startDate}

	if end != "" {
		endDate, err := time.Parse(dateLayout, end)
		if err != nil {
			return nil, fmt.Errorf("parsing --end: %w", err)
		}
		if endDate.Before(startDate) {
			return nil, fmt.Errorf("--end %s is before --start %s", end, start)
		}
		ev.EndDate = &endDate
	}
	return ev, nil
}

func printEvents(w io.Writer, events []db.Event) {
	if len(events) == 0 {
		fmt.Fprintln(w, "no events")
		return
	}
	for _, ev := range events {
		end := "ongoing"
		if ev.EndDate != nil {
			end = ev.EndDate.Format(dateLayout)
		}
		fmt.Fprintf(w, "%s  %s  %s to %s\n", ev.ID, ev.Name, ev.StartDate.Format(dateLayout), end)
	}
}
