// Command analyze runs a single DSCR property search from the command
// line and prints the ranked results.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/joho/godotenv"

	"dscr-analyzer/internal/analyzer"
	"dscr-analyzer/internal/domain"
	"dscr-analyzer/internal/providers/serpapi"
	"dscr-analyzer/internal/providers/stub"
	"dscr-analyzer/internal/providers/zillow"
)

func main() {
	_ = godotenv.Load()

	city := flag.String("city", "", "City to search (required)")
	state := flag.String("state", "", "Two-letter state code (required)")
	downPayment := flag.Float64("down-payment", 20, "Down payment percentage")
	interestRate := flag.Float64("interest-rate", 7.0, "Annual interest rate percentage")
	minPrice := flag.Int("min-price", 0, "Minimum listing price")
	maxPrice := flag.Int("max-price", 0, "Maximum listing price (0 = unbounded)")
	limit := flag.Int("limit", 10, "Maximum number of results to print")
	zillowKey := flag.String("zillow-key", os.Getenv("ZILLOW_API_KEY"), "RapidAPI key for the Zillow listing search")
	serpapiKey := flag.String("serpapi-key", os.Getenv("SERPAPI_KEY"), "SerpAPI key for average rent fallback")
	useStubs := flag.Bool("use-stubs", false, "Use stub providers instead of live APIs")
	flag.Parse()

	if *city == "" || *state == "" {
		fmt.Fprintln(os.Stderr, "Error: --city and --state are required")
		os.Exit(1)
	}
	if !*useStubs && *zillowKey == "" {
		fmt.Fprintln(os.Stderr, "Error: --zillow-key is required (use --use-stubs to run with demo data)")
		os.Exit(1)
	}

	ctx := context.Background()

	var opts analyzer.Options
	if *useStubs {
		opts.Listings = stub.NewListingSource()
		opts.Rents = stub.NewRentSource()
	} else {
		opts.Listings = zillow.NewClient(*zillowKey)
		if *serpapiKey != "" {
			opts.Rents = serpapi.NewClient(*serpapiKey)
		}
	}

	a := analyzer.New(opts)

	results, err := a.Search(ctx, domain.SearchRequest{
		City:           *city,
		State:          *state,
		DownPaymentPct: *downPayment,
		InterestRate:   *interestRate,
		MinPrice:       *minPrice,
		MaxPrice:       *maxPrice,
		Username:       "cli",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if len(results) == 0 {
		fmt.Printf("No qualifying listings found in %s, %s\n", *city, *state)
		return
	}
	if len(results) > *limit {
		results = results[:*limit]
	}

	fmt.Printf("Top %d listings in %s, %s by DSCR (%.0f%% down, %.2f%% rate):\n\n",
		len(results), *city, *state, *downPayment, *interestRate)

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "DSCR\tPRICE\tPAYMENT\tRENT\tSOURCE\tADDRESS")
	for _, r := range results {
		fmt.Fprintf(w, "%.2f\t$%.0f\t$%.2f\t$%.0f\t%s\t%s\n",
			r.DSCR, r.Price, r.MonthlyPayment, r.Rent, r.RentSource, r.Address)
	}
	w.Flush()

	fmt.Println()
	for _, r := range results {
		fmt.Printf("  %s -> %s\n", r.Address, r.ZillowURL)
	}
}
