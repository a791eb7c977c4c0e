package commands

import (
	"context"
	"strings"

	"github.com/dyluth/gather/internal/printer"
	"github.com/dyluth/gather/internal/render"
	"github.com/dyluth/gather/internal/timespec"
	"github.com/dyluth/gather/pkg/geo"
	"github.com/dyluth/gather/pkg/store"
	"github.com/spf13/cobra"
)

var (
	eventsUser       string
	eventsOutput     string
	eventsAt         string
	eventsRadius     float64
	eventsCategories []string
	eventsScope      string

	createTitle        string
	createDescription  string
	createCategory     string
	createStart        string
	createDuration     string
	createLocationName string
)

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Discover, create and delete events",
}

var eventsNearbyCmd = &cobra.Command{
	Use:   "nearby",
	Short: "List joinable events around a user",
	Long: `List events a user could join: within the search radius, in one of the
chosen categories, not ended and not already joined. Ordered by start time.

Without --at the user's profile (home, categories, radius) is used.

Examples:
  # Use alice's saved preferences
  gather events nearby --user alice

  # Search around a point, 150 km, music only
  gather events nearby --user alice --at 41.90,2.80 --radius 150 --category music`,
	RunE: runEventsNearby,
}

var eventsMineCmd = &cobra.Command{
	Use:   "mine",
	Short: "List the events a user joined",
	RunE:  runEventsMine,
}

var eventsShowCmd = &cobra.Command{
	Use:   "show EVENT_ID",
	Short: "Print one event as JSON",
	Args:  cobra.ExactArgs(1),
	RunE:  runEventsShow,
}

var eventsCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create an event and its chat",
	Long: `Create an event owned by --user. The creator is subscribed and the chat
is opened with a "Chat created" system message in the same transaction.

Examples:
  gather events create --user alice --title "Jazz night" --category music \
    --at 41.98,2.82 --start +2h --duration 3h`,
	RunE: runEventsCreate,
}

var eventsDeleteCmd = &cobra.Command{
	Use:   "delete EVENT_ID",
	Short: "Delete an event with its chat and subscriptions",
	Args:  cobra.ExactArgs(1),
	RunE:  runEventsDelete,
}

func init() {
	eventsCmd.PersistentFlags().StringVarP(&eventsUser, "user", "u", "", "Acting user id")

	eventsNearbyCmd.Flags().StringVar(&eventsAt, "at", "", "Search centre as lat,lon (default: profile home)")
	eventsNearbyCmd.Flags().Float64Var(&eventsRadius, "radius", 50, "Search radius in km (with --at)")
	eventsNearbyCmd.Flags().StringSliceVar(&eventsCategories, "category", nil, "Restrict to categories (with --at)")
	eventsNearbyCmd.Flags().StringVarP(&eventsOutput, "output", "o", "default", "Output format: default or jsonl")

	eventsMineCmd.Flags().StringVar(&eventsScope, "scope", "upcoming", "upcoming or past")
	eventsMineCmd.Flags().StringVarP(&eventsOutput, "output", "o", "default", "Output format: default or jsonl")

	eventsCreateCmd.Flags().StringVar(&createTitle, "title", "", "Event title (required)")
	eventsCreateCmd.Flags().StringVar(&createDescription, "description", "", "Event description")
	eventsCreateCmd.Flags().StringVar(&createCategory, "category", "", "Catalog category id")
	eventsCreateCmd.Flags().StringVar(&eventsAt, "at", "", "Location as lat,lon")
	eventsCreateCmd.Flags().StringVar(&createLocationName, "location-name", "", "Human readable place")
	eventsCreateCmd.Flags().StringVar(&createStart, "start", "+1h", "Start time (duration from now or RFC3339)")
	eventsCreateCmd.Flags().StringVar(&createDuration, "duration", "2h", "Event length")

	eventsCmd.AddCommand(eventsNearbyCmd, eventsMineCmd, eventsShowCmd, eventsCreateCmd, eventsDeleteCmd)
	rootCmd.AddCommand(eventsCmd)
}

func requireUser(user string) error {
	if strings.TrimSpace(user) == "" {
		return printer.Error("missing user", "This command acts on behalf of a user.", []string{"Pass --user <id>"})
	}
	return nil
}

func runEventsNearby(cmd *cobra.Command, args []string) error {
	if err := requireUser(eventsUser); err != nil {
		return err
	}
	format, err := render.ParseOutputFormat(eventsOutput)
	if err != nil {
		return printer.Error("invalid output format", err.Error(), nil)
	}

	ctx := context.Background()
	a, err := newApp(ctx, cliMode)
	if err != nil {
		return err
	}
	defer a.Close()

	var (
		events []*store.Event
		from   *geo.Point
	)
	if eventsAt != "" {
		p, err := geo.Parse(eventsAt)
		if err != nil {
			return printer.Error("invalid --at", err.Error(), []string{"Use decimal degrees, e.g. --at 41.90,2.80"})
		}
		from = &p
		events, err = a.discovery.NearbyFrom(ctx, eventsUser, p, eventsCategories, eventsRadius)
		if err != nil {
			return storeError("list nearby events", err)
		}
	} else {
		if prof, err := a.profiles.Get(ctx, eventsUser); err == nil {
			from = prof.Home
		}
		events, err = a.discovery.Nearby(ctx, eventsUser)
		if err != nil {
			return storeError("list nearby events", err)
		}
		if from == nil {
			printer.Warning("%s has no home location; pass --at or set one with 'gather profile set'\n", eventsUser)
		}
	}

	return printEvents(events, from, format, a)
}

func runEventsMine(cmd *cobra.Command, args []string) error {
	if err := requireUser(eventsUser); err != nil {
		return err
	}
	format, err := render.ParseOutputFormat(eventsOutput)
	if err != nil {
		return printer.Error("invalid output format", err.Error(), nil)
	}

	ctx := context.Background()
	a, err := newApp(ctx, cliMode)
	if err != nil {
		return err
	}
	defer a.Close()

	var events []*store.Event
	switch eventsScope {
	case "upcoming":
		events, err = a.discovery.Upcoming(ctx, eventsUser)
	case "past":
		events, err = a.discovery.Past(ctx, eventsUser)
	default:
		return printer.Error("invalid --scope", "Unknown scope: "+eventsScope, []string{"Valid scopes: upcoming, past"})
	}
	if err != nil {
		return storeError("list joined events", err)
	}
	return printEvents(events, nil, format, a)
}

func printEvents(events []*store.Event, from *geo.Point, format render.OutputFormat, a *app) error {
	if format == render.OutputFormatJSONL {
		return render.JSONL(printer.Out(), events)
	}
	render.EventsTable(printer.Out(), events, from, a.clock.Now())
	return nil
}

func runEventsShow(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	a, err := newApp(ctx, cliMode)
	if err != nil {
		return err
	}
	defer a.Close()

	eventID, err := a.resolveEvent(ctx, args[0])
	if err != nil {
		return err
	}
	e, err := a.discovery.GetEvent(ctx, eventID)
	if err != nil {
		return storeError("read event", err)
	}
	return render.SingleJSON(printer.Out(), e)
}

func runEventsCreate(cmd *cobra.Command, args []string) error {
	if err := requireUser(eventsUser); err != nil {
		return err
	}

	ctx := context.Background()
	a, err := newApp(ctx, cliMode)
	if err != nil {
		return err
	}
	defer a.Close()

	startMs, endMs, err := timespec.Window(createStart, createDuration, a.clock.Now())
	if err != nil {
		return printer.Error("invalid event time", err.Error(), nil)
	}

	e := &store.Event{
		Title:        createTitle,
		Description:  createDescription,
		Category:     createCategory,
		StartMs:      startMs,
		EndMs:        endMs,
		LocationName: createLocationName,
		CreatorID:    eventsUser,
	}
	if eventsAt != "" {
		p, err := geo.Parse(eventsAt)
		if err != nil {
			return printer.Error("invalid --at", err.Error(), nil)
		}
		e.Location = &p
	} else {
		printer.Warning("no --at given; the event will not appear in nearby searches\n")
	}

	created, err := a.discovery.CreateEvent(ctx, e)
	if err != nil {
		return storeError("create event", err)
	}
	printer.Success("created event %s\n", created.ID)
	return nil
}

func runEventsDelete(cmd *cobra.Command, args []string) error {
	if err := requireUser(eventsUser); err != nil {
		return err
	}

	ctx := context.Background()
	a, err := newApp(ctx, cliMode)
	if err != nil {
		return err
	}
	defer a.Close()

	eventID, err := a.resolveEvent(ctx, args[0])
	if err != nil {
		return err
	}
	if err := a.discovery.DeleteEvent(ctx, eventID, eventsUser); err != nil {
		return storeError("delete event", err)
	}
	printer.Success("deleted event %s\n", eventID)
	return nil
}
