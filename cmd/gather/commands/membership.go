package commands

import (
	"context"

	"github.com/dyluth/gather/internal/presence"
	"github.com/dyluth/gather/internal/printer"
	"github.com/dyluth/gather/internal/render"
	"github.com/dyluth/gather/pkg/geo"
	"github.com/dyluth/gather/pkg/store"
	"github.com/spf13/cobra"
)

var (
	memberUser string

	profileName       string
	profileEmail      string
	profileHome       string
	profileRadius     int
	profileCategories []string
	profileOrganizer  bool
)

var joinCmd = &cobra.Command{
	Use:   "join EVENT_ID",
	Short: "Subscribe a user to an event",
	Args:  cobra.ExactArgs(1),
	RunE:  runJoin,
}

var leaveCmd = &cobra.Command{
	Use:   "leave EVENT_ID",
	Short: "Unsubscribe a user from an event",
	Args:  cobra.ExactArgs(1),
	RunE:  runLeave,
}

var presenceCmd = &cobra.Command{
	Use:   "presence EVENT_ID",
	Short: "Show subscribers and users online in an event chat",
	Long: `Show how many users subscribed to an event and how many were active in
its chat during the last two minutes.

With --user, a heartbeat is recorded for that user first.`,
	Args: cobra.ExactArgs(1),
	RunE: runPresence,
}

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Show or edit a user's discovery preferences",
}

var profileShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print a user's profile as JSON",
	RunE:  runProfileShow,
}

var profileSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Create or update a user's profile",
	Long: `Create or update a user's profile. Only the flags given are changed.

Examples:
  gather profile set --user alice --home 41.90,2.80 --radius 150 --category music,sports
  gather profile set --user bob --organizer`,
	RunE: runProfileSet,
}

func init() {
	for _, c := range []*cobra.Command{joinCmd, leaveCmd, presenceCmd, profileCmd} {
		c.PersistentFlags().StringVarP(&memberUser, "user", "u", "", "Acting user id")
	}

	profileSetCmd.Flags().StringVar(&profileName, "name", "", "Display name")
	profileSetCmd.Flags().StringVar(&profileEmail, "email", "", "Contact email")
	profileSetCmd.Flags().StringVar(&profileHome, "home", "", "Home location as lat,lon")
	profileSetCmd.Flags().IntVar(&profileRadius, "radius", 0, "Search radius in km (0 = default 50)")
	profileSetCmd.Flags().StringSliceVar(&profileCategories, "category", nil, "Preferred categories")
	profileSetCmd.Flags().BoolVar(&profileOrganizer, "organizer", false, "Allow the user to create events")

	profileCmd.AddCommand(profileShowCmd, profileSetCmd)
	rootCmd.AddCommand(joinCmd, leaveCmd, presenceCmd, profileCmd)
}

func runJoin(cmd *cobra.Command, args []string) error {
	if err := requireUser(memberUser); err != nil {
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
	if err := a.ledger.Subscribe(ctx, memberUser, eventID); err != nil {
		return storeError("join event", err)
	}
	printer.Success("%s joined %s\n", memberUser, eventID)
	return nil
}

func runLeave(cmd *cobra.Command, args []string) error {
	if err := requireUser(memberUser); err != nil {
		return err
	}

	ctx := context.Background()
	a, err := newApp(ctx, cliMode)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.ledger.Unsubscribe(ctx, memberUser, args[0]); err != nil {
		return storeError("leave event", err)
	}
	printer.Success("%s left %s\n", memberUser, args[0])
	return nil
}

func runPresence(cmd *cobra.Command, args []string) error {
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
	now := a.clock.Now()

	if memberUser != "" {
		if err := a.presence.Heartbeat(ctx, memberUser, eventID, now); err != nil {
			return storeError("record heartbeat", err)
		}
		printer.Muted("heartbeat recorded for %s\n", memberUser)
	}

	subscribers, err := a.ledger.SubscriberCount(ctx, eventID)
	if err != nil {
		return storeError("count subscribers", err)
	}
	online, err := a.presence.OnlineCount(ctx, eventID, now)
	if err != nil {
		return storeError("count online users", err)
	}

	printer.Info("Subscribers: %d\n", subscribers)
	printer.Info("Online (last %s): %d\n", presence.Window, online)
	return nil
}

func runProfileShow(cmd *cobra.Command, args []string) error {
	if err := requireUser(memberUser); err != nil {
		return err
	}

	ctx := context.Background()
	a, err := newApp(ctx, cliMode)
	if err != nil {
		return err
	}
	defer a.Close()

	p, err := a.profiles.Get(ctx, memberUser)
	if err != nil {
		return storeError("read profile", err)
	}
	return render.SingleJSON(printer.Out(), p)
}

func runProfileSet(cmd *cobra.Command, args []string) error {
	if err := requireUser(memberUser); err != nil {
		return err
	}

	ctx := context.Background()
	a, err := newApp(ctx, cliMode)
	if err != nil {
		return err
	}
	defer a.Close()

	p, err := a.profiles.Get(ctx, memberUser)
	switch {
	case store.IsNotFound(err):
		p = &store.UserProfile{ID: memberUser}
	case err != nil:
		return storeError("read profile", err)
	}

	flags := cmd.Flags()
	if flags.Changed("name") {
		p.Username = profileName
	}
	if flags.Changed("email") {
		p.Email = profileEmail
	}
	if flags.Changed("home") {
		home, err := geo.Parse(profileHome)
		if err != nil {
			return printer.Error("invalid --home", err.Error(), nil)
		}
		p.Home = &home
	}
	if flags.Changed("radius") {
		p.MaxDistanceKm = profileRadius
	}
	if flags.Changed("category") {
		p.Categories = profileCategories
	}
	if flags.Changed("organizer") {
		p.Organizer = profileOrganizer
	}

	if err := a.profiles.Save(ctx, p); err != nil {
		return storeError("save profile", err)
	}
	printer.Success("saved profile %s\n", memberUser)
	return nil
}
