package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	appLog "nannypay/internal/log"
	"nannypay/internal/model"
	"nannypay/internal/payslip"
	"nannypay/internal/report"
	"nannypay/internal/scheduler"
	"nannypay/internal/web"
)

// monthFlags select the month and pay options of export and pay.
type monthFlags struct {
	year         int
	month        int
	name         string
	forfait      string
	overtimePaid bool
}

func (f *monthFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVar(&f.year, "year", 0, "Year of the month (default: previous month)")
	cmd.Flags().IntVar(&f.month, "month", 0, "Month 1-12 (default: previous month)")
	cmd.Flags().StringVar(&f.name, "name", "", "Only count events whose summary contains this text")
	cmd.Flags().StringVar(&f.forfait, "forfait", "", `Contracted monthly hours, e.g. "151,67"`)
	cmd.Flags().BoolVar(&f.overtimePaid, "overtime-paid", false, "Pay hours above the forfait as complementary hours")
}

// limits resolves the flags against the export section of the config;
// flags given on the command line win.
func (f *monthFlags) limits(cmd *cobra.Command, a *app) (model.CalendarLimits, error) {
	year, month := report.PreviousMonth(time.Now().In(a.loc))
	if f.year != 0 {
		year = f.year
	}
	if f.month != 0 {
		if f.month < 1 || f.month > 12 {
			return model.CalendarLimits{}, fmt.Errorf("%w: month %d", report.ErrInvalidLimits, f.month)
		}
		month = time.Month(f.month)
	}

	limits := report.MonthLimits(year, month, a.loc)
	limits.Name = a.cfg.Export.Name
	limits.Forfait = a.cfg.Export.Forfait
	limits.OvertimeIsPaid = a.cfg.Export.OvertimePaid

	if cmd.Flags().Changed("name") {
		limits.Name = f.name
	}
	if cmd.Flags().Changed("forfait") {
		forfait, err := report.ParseForfait(f.forfait)
		if err != nil {
			return limits, err
		}
		limits.Forfait = forfait
	}
	if cmd.Flags().Changed("overtime-paid") {
		limits.OvertimeIsPaid = f.overtimePaid
	}
	return limits, nil
}

func newRootCmd() *cobra.Command {
	var configPath string

	rootCmd := &cobra.Command{
		Use:          "nannypay",
		Short:        "Nanny timesheet and payroll from a calendar feed",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", defaultConfigPath, "Path to config file")

	rootCmd.AddCommand(newServeCmd(&configPath))
	rootCmd.AddCommand(newExportCmd(&configPath))
	rootCmd.AddCommand(newPayCmd(&configPath))
	return rootCmd
}

// serve runs the HTTP API and the monthly export schedule until the command
// context is canceled.
func newServeCmd(configPath *string) *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API and run the scheduled export",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(*configPath)
			if err != nil {
				return err
			}
			if listen != "" {
				a.cfg.Listen = listen
			}

			job := scheduler.NewMonthlyExport(a.svc, a.cfg.Export, a.loc)
			g, ctx := errgroup.WithContext(cmd.Context())
			g.Go(func() error {
				return web.StartServer(ctx, a.cfg, a.svc)
			})
			g.Go(func() error {
				return scheduler.Run(ctx, a.cfg.Export.Schedule, a.loc, job)
			})

			if err := g.Wait(); err != nil {
				appLog.Error("nannypay stopped with error", err)
				return err
			}
			appLog.Info("nannypay exiting")
			return nil
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "HTTP listen address (overrides config if set)")
	return cmd
}

func newExportCmd(configPath *string) *cobra.Command {
	var (
		flags monthFlags
		dir   string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the CSV timesheet of one month",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(*configPath)
			if err != nil {
				return err
			}
			limits, err := flags.limits(cmd, a)
			if err != nil {
				return err
			}

			exportCfg := a.cfg.Export
			exportCfg.Name = limits.Name
			exportCfg.Forfait = limits.Forfait
			exportCfg.OvertimePaid = limits.OvertimeIsPaid
			if dir != "" {
				exportCfg.Dir = dir
			}

			start := limits.Start
			path, err := scheduler.NewMonthlyExport(a.svc, exportCfg, a.loc).
				RunMonth(cmd.Context(), start.Year(), start.Month())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVar(&dir, "dir", "", "Output directory (overrides config if set)")
	return cmd
}

func newPayCmd(configPath *string) *cobra.Command {
	var (
		flags   monthFlags
		asJSON  bool
		pdfPath string
	)

	cmd := &cobra.Command{
		Use:   "pay",
		Short: "Print the pay breakdown of one month",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(*configPath)
			if err != nil {
				return err
			}
			limits, err := flags.limits(cmd, a)
			if err != nil {
				return err
			}
			rep, err := a.svc.Build(cmd.Context(), limits)
			if err != nil {
				return err
			}

			if pdfPath != "" {
				if err := writePayslip(pdfPath, rep, a); err != nil {
					return err
				}
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(rep.View())
			}
			return printPay(cmd.OutOrStdout(), rep)
		},
	}
	flags.register(cmd)
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the full report as JSON")
	cmd.Flags().StringVar(&pdfPath, "pdf", "", "Also write the payslip PDF to this path")
	return cmd
}

func writePayslip(path string, rep *report.Report, a *app) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	err = payslip.Write(f, rep, payslip.Parties{
		Employee: a.cfg.Employee.Name,
		Employer: a.cfg.Employee.Employer,
	})
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	return err
}

func printPay(w io.Writer, rep *report.Report) error {
	pay := rep.Pay
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	row := func(label string, v float64) {
		fmt.Fprintf(tw, "%s\t%.2f\t\n", label, v)
	}

	row("Heures effectuées", pay.HoursMade)
	row("Heures payées", pay.HoursToPay)
	row("Heures complémentaires", pay.ComplementaryHours)
	row("Salaire de base", pay.BasePay)
	row("Congés payés", pay.VacationOnBase+pay.VacationOnComplementary)
	row("Heures complémentaires payées", pay.ComplementaryHoursToPay)
	row("Salaire brut", pay.RawSalary)
	for _, c := range pay.Charges {
		row("  "+c.Label, c.Amount)
	}
	row("  "+pay.Exemption.Label+" (non déduite)", pay.Exemption.Amount)
	row("Total cotisations", pay.SumOfCharges)
	row("Salaire net", pay.NetPay)
	row("Indemnités", rep.Reimbursements.Total)
	return tw.Flush()
}
