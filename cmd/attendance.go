package cmd

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"
)

var attendanceCmd = &cobra.Command{
	Use:   "attendance",
	Short: "Report and correct attendance records",
}

var attendanceReportCmd = &cobra.Command{
	Use:   "report",
	Short: "Print the attendance of one day",
	Args:  cobra.NoArgs,
	RunE:  runAttendanceReport,
}

var attendanceLastCmd = &cobra.Command{
	Use:   "last <person-id>",
	Short: "Print the most recent record of a person",
	Args:  cobra.ExactArgs(1),
	RunE:  runAttendanceLast,
}

var attendanceRetimeCmd = &cobra.Command{
	Use:   "retime <record-id> <time>",
	Short: "Change the time of a record (RFC 3339, 'YYYY-MM-DD HH:MM:SS' or milliseconds)",
	Args:  cobra.ExactArgs(2),
	RunE:  runAttendanceRetime,
}

var attendanceDeleteCmd = &cobra.Command{
	Use:   "delete <record-id>",
	Short: "Delete a record",
	Args:  cobra.ExactArgs(1),
	RunE:  runAttendanceDelete,
}

func init() {
	rootCmd.AddCommand(attendanceCmd)
	attendanceCmd.AddCommand(attendanceReportCmd)
	attendanceCmd.AddCommand(attendanceLastCmd)
	attendanceCmd.AddCommand(attendanceRetimeCmd)
	attendanceCmd.AddCommand(attendanceDeleteCmd)

	attendanceReportCmd.Flags().String("date", "", "Day to report as YYYY-MM-DD (default today)")
}

// parseRecordTime accepts milliseconds, RFC 3339 or a local date time in loc.
func parseRecordTime(s string, loc *time.Location) (int64, error) {
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		return ms, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UnixMilli(), nil
	}
	t, err := time.ParseInLocation(time.DateTime, s, loc)
	if err != nil {
		return 0, fmt.Errorf("invalid time %q", s)
	}
	return t.UnixMilli(), nil
}

func runAttendanceReport(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	a, err := newApp(ctx, cmd, nil)
	if err != nil {
		return err
	}
	defer a.Close()

	loc := a.service.Location()
	day := time.Now().In(loc)
	if v := mustGetString(cmd, "date"); v != "" {
		day, err = time.ParseInLocation(time.DateOnly, v, loc)
		if err != nil {
			return fmt.Errorf("invalid date %q, expected YYYY-MM-DD", v)
		}
	}

	report, err := a.service.DayReport(ctx, day)
	if err != nil {
		return err
	}

	fmt.Printf("Attendance on %s (%s)\n\n", report.Date, loc)
	fmt.Printf("%-8s %-10s %-16s %s\n", "RECORD", "TIME", "KEY", "NAME")
	// oldest first reads better on a terminal
	for i := len(report.Entries) - 1; i >= 0; i-- {
		e := report.Entries[i]
		fmt.Printf("%-8d %-10s %-16s %s %s\n",
			e.ID, time.UnixMilli(e.Timestamp).In(loc).Format(time.TimeOnly), e.ExternalKey, e.GivenName, e.FamilyName)
	}
	fmt.Printf("\n%d records, %d people\n", report.Count, report.People)
	return nil
}

func runAttendanceLast(cmd *cobra.Command, args []string) error {
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

	record, err := a.service.LastRecord(ctx, id)
	if err != nil {
		return err
	}
	if record == nil {
		fmt.Printf("Person %d has no attendance\n", id)
		return nil
	}
	fmt.Printf("Record %d at %s\n", record.ID, time.UnixMilli(record.Timestamp).In(a.service.Location()).Format(time.DateTime))
	return nil
}

func runAttendanceRetime(cmd *cobra.Command, args []string) error {
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

	ts, err := parseRecordTime(args[1], a.service.Location())
	if err != nil {
		return err
	}
	record, err := a.service.UpdateRecordTime(ctx, id, ts)
	if err != nil {
		return err
	}
	fmt.Printf("Record %d now at %s\n", record.ID, time.UnixMilli(record.Timestamp).In(a.service.Location()).Format(time.DateTime))
	return nil
}

func runAttendanceDelete(cmd *cobra.Command, args []string) error {
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

	if err := a.service.DeleteRecord(ctx, id); err != nil {
		return err
	}
	fmt.Printf("Deleted record %d\n", id)
	return nil
}
