package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/iho/kpidash/internal/adapter/csvledger"
	"github.com/iho/kpidash/internal/adapter/http/dto"
	"github.com/iho/kpidash/internal/domain"
	"github.com/iho/kpidash/internal/infrastructure/auth"
)

var (
	baseURL string
	token   string
	timeout time.Duration
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "kpidash-cli",
		Short:         "KPI dashboard CLI tool",
		Long:          `A command line interface for analysing ledger CSV files and talking to the KPI dashboard API.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&baseURL, "url", "http://localhost:8080", "Base URL of the KPI dashboard API")
	root.PersistentFlags().StringVar(&token, "token", os.Getenv("KPIDASH_TOKEN"), "Bearer token for the API")
	root.PersistentFlags().DurationVar(&timeout, "timeout", 30*time.Second, "Request timeout")

	// Snapshot commands
	snapshotsCmd := &cobra.Command{
		Use:   "snapshots",
		Short: "Snapshot operations",
	}
	snapshotsCmd.AddCommand(listSnapshotsCmd())

	root.AddCommand(insightsCmd(), exportCmd(), uploadCmd(), tokenCmd(), snapshotsCmd)

	return root
}

func insightsCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "insights <file.csv>",
		Short: "Compute KPI insights for a local ledger file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := parseFile(args[0])
			if err != nil {
				return err
			}

			report := domain.DeriveInsights(result.Rows)
			out := cmd.OutOrStdout()

			if asJSON {
				return printJSON(out, dto.InsightsFromDomain(report))
			}

			for _, w := range result.Warnings {
				fmt.Fprintf(out, "warning: %s\n", w)
			}

			summary := report.Summary()
			fmt.Fprintf(out, "Rows:           %d\n", report.RowCount)
			fmt.Fprintf(out, "Burn rate:      %s\n", summary.BurnRate)
			fmt.Fprintf(out, "Runway:         %s\n", summary.Runway)
			fmt.Fprintf(out, "Revenue growth: %s\n", summary.RevenueGrowth)
			fmt.Fprintf(out, "Profitability:  %s\n", summary.Profitability)
			for _, msg := range report.Messages {
				fmt.Fprintf(out, "- %s\n", msg)
			}

			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the report as JSON")

	return cmd
}

func exportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export <file.csv>",
		Short: "Validate a ledger file and print it in canonical CSV form",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := parseFile(args[0])
			if err != nil {
				return err
			}
			return csvledger.WriteLedger(cmd.OutOrStdout(), result.Rows)
		},
	}
}

func uploadCmd() *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "upload <file.csv>",
		Short: "Upload a ledger file and store it as a snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			content, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}

			body, contentType, err := multipartBody(filepath.Base(args[0]), name, content)
			if err != nil {
				return err
			}

			req, err := http.NewRequestWithContext(cmd.Context(), http.MethodPost, baseURL+"/api/v1/uploads", body)
			if err != nil {
				return err
			}
			req.Header.Set("Content-Type", contentType)

			var result dto.UploadResponse
			if err := doJSON(req, http.StatusCreated, &result); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Stored snapshot %s (%s) with %d rows\n", result.Snapshot.ID, result.Snapshot.Name, len(result.Snapshot.Rows))
			if result.ForecastError != "" {
				fmt.Fprintf(out, "Forecast: %s\n", result.ForecastError)
			} else {
				fmt.Fprintf(out, "Forecast: %d points\n", len(result.Snapshot.Forecast))
			}
			for _, msg := range result.Insights.Report.Messages {
				fmt.Fprintf(out, "- %s\n", msg)
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Snapshot name (defaults to the file name)")

	return cmd
}

func listSnapshotsCmd() *cobra.Command {
	var limit, offset int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored snapshots, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			query := url.Values{}
			query.Set("limit", strconv.Itoa(limit))
			query.Set("offset", strconv.Itoa(offset))

			req, err := http.NewRequestWithContext(cmd.Context(), http.MethodGet, baseURL+"/api/v1/snapshots?"+query.Encode(), nil)
			if err != nil {
				return err
			}

			var result dto.ListSnapshotsResponse
			if err := doJSON(req, http.StatusOK, &result); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, s := range result.Snapshots {
				fmt.Fprintf(out, "%s  %s  %s\n", s.ID, s.CreatedAt.UTC().Format(time.RFC3339), truncate(s.Name, 40))
			}

			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", domain.DefaultPageSize, "Maximum snapshots to list")
	cmd.Flags().IntVar(&offset, "offset", 0, "Snapshots to skip")

	return cmd
}

func tokenCmd() *cobra.Command {
	var (
		owner  string
		email  string
		secret string
		ttl    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a bearer token for a dashboard owner",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if secret == "" {
				return fmt.Errorf("--secret or JWT_SECRET is required")
			}

			signed, err := auth.NewJWTManager(secret, ttl).Generate(&domain.Session{UserID: owner, Email: email})
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), signed)
			return nil
		},
	}

	cmd.Flags().StringVar(&owner, "owner", "", "Owner id stored in the token")
	cmd.Flags().StringVar(&email, "email", "", "Owner email")
	cmd.Flags().StringVar(&secret, "secret", os.Getenv("JWT_SECRET"), "Signing secret")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "Token lifetime")

	return cmd
}

func parseFile(path string) (*domain.ParseResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return csvledger.Parse(f)
}

func multipartBody(fileName, name string, content []byte) (io.Reader, string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	if name != "" {
		if err := writer.WriteField("name", name); err != nil {
			return nil, "", err
		}
	}

	part, err := writer.CreateFormFile("file", fileName)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(content); err != nil {
		return nil, "", err
	}
	if err := writer.Close(); err != nil {
		return nil, "", err
	}

	return &buf, writer.FormDataContentType(), nil
}

func doJSON(req *http.Request, wantStatus int, out any) error {
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	client := &http.Client{Timeout: timeout}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("error making request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode != wantStatus {
		var apiErr dto.ErrorResponse
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("request failed (status %d): %s", resp.StatusCode, apiErr.Error)
		}
		return fmt.Errorf("request failed (status %d): %s", resp.StatusCode, truncate(strings.TrimSpace(string(body)), 200))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	return nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	if n <= 3 {
		return s[:n]
	}
	return s[:n-3] + "..."
}
