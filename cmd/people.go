package cmd

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/spf13/cobra"
)

var peopleCmd = &cobra.Command{
	Use:   "people",
	Short: "Manage enrolled people",
}

var peopleListCmd = &cobra.Command{
	Use:   "list",
	Short: "List enrolled people",
	Args:  cobra.NoArgs,
	RunE:  runPeopleList,
}

var peopleShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a person and their last attendance",
	Args:  cobra.ExactArgs(1),
	RunE:  runPeopleShow,
}

var peopleRenameCmd = &cobra.Command{
	Use:   "rename <id> <given-name> <family-name>",
	Short: "Change the name of a person",
	Args:  cobra.ExactArgs(3),
	RunE:  runPeopleRename,
}

var peopleDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a person with their attendance and face photo",
	Args:  cobra.ExactArgs(1),
	RunE:  runPeopleDelete,
}

func init() {
	rootCmd.AddCommand(peopleCmd)
	peopleCmd.AddCommand(peopleListCmd)
	peopleCmd.AddCommand(peopleShowCmd)
	peopleCmd.AddCommand(peopleRenameCmd)
	peopleCmd.AddCommand(peopleDeleteCmd)

	peopleListCmd.Flags().StringP("query", "q", "", "Filter by name or external key (diacritics ignored)")
}

// parseID parses a positive database ID argument.
func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}

func runPeopleList(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	a, err := newApp(ctx, cmd, nil)
	if err != nil {
		return err
	}
	defer a.Close()

	people, err := a.service.SearchPeople(ctx, mustGetString(cmd, "query"))
	if err != nil {
		return err
	}

	fmt.Printf("%-6s %-16s %-20s %-20s %s\n", "ID", "KEY", "GIVEN NAME", "FAMILY NAME", "ENROLLED")
	for _, p := range people {
		fmt.Printf("%-6d %-16s %-20s %-20s %s\n",
			p.ID, p.ExternalKey, p.GivenName, p.FamilyName,
			p.CreatedAt.In(a.service.Location()).Format(time.DateOnly))
	}
	fmt.Printf("\n%d people\n", len(people))
	return nil
}

func runPeopleShow(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	ctx := context.Background()
	a, err := newApp(ctx, cmd, nil)
	if err != nil {
		return err
	}
	defer a.Close()

	identity, err := a.service.GetIdentity(ctx, id)
	if err != nil {
		return err
	}
	if identity == nil {
		return fmt.Errorf("person %d: %w", id, database.ErrNotFound)
	}
	last, err := a.service.LastRecord(ctx, id)
	if err != nil {
		return err
	}

	loc := a.service.Location()
	fmt.Printf("ID:          %d\n", identity.ID)
	fmt.Printf("Key:         %s\n", identity.ExternalKey)
	fmt.Printf("Name:        %s %s\n", identity.GivenName, identity.FamilyName)
	fmt.Printf("Embedding:   %d values\n", len(identity.Embedding))
	fmt.Printf("Photo:       %s\n", identity.FacePhotoPath)
	fmt.Printf("Enrolled:    %s\n", identity.CreatedAt.In(loc).Format(time.DateTime))
	if last != nil {
		fmt.Printf("Last seen:   %s\n", time.UnixMilli(last.Timestamp).In(loc).Format(time.DateTime))
	} else {
		fmt.Println("Last seen:   never")
	}
	return nil
}

func runPeopleRename(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	ctx := context.Background()
	a, err := newApp(ctx, cmd, nil)
	if err != nil {
		return err
	}
	defer a.Close()

	identity, err := a.service.UpdateNames(ctx, id, attendance.UpdateNamesRequest{GivenName: args[1], FamilyName: args[2]})
	if err != nil {
		return err
	}
	fmt.Printf("Renamed %d to %s %s\n", identity.ID, identity.GivenName, identity.FamilyName)
	return nil
}

func runPeopleDelete(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	ctx := context.Background()
	a, err := newApp(ctx, cmd, nil)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.service.DeleteIdentity(ctx, id); err != nil {
		return err
	}
	fmt.Printf("Deleted person %d\n", id)
	return nil
}
