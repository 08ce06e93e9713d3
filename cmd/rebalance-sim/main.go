// Command rebalance-sim loads a cluster snapshot from JSON, runs one
// balance invocation against it, and prints the resulting observability
// report.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"sort"
	"time"

	"github.com/guptarohit/asciigraph"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/lifeqiuzhi520/rebalance/pkg/balancer"
	"github.com/lifeqiuzhi520/rebalance/pkg/balancer/balancerconfig"
	"github.com/lifeqiuzhi520/rebalance/pkg/balancer/model"
	"github.com/lifeqiuzhi520/rebalance/pkg/util/log"
)

// snapshotServer is one server's JSON entry: identity, rack membership,
// and the regions currently assigned to it.
type snapshotServer struct {
	Host      string           `json:"host"`
	Port      int              `json:"port"`
	StartCode int64            `json:"startCode"`
	Rack      string           `json:"rack"`
	Regions   []snapshotRegion `json:"regions"`
}

type snapshotRegion struct {
	Name      string `json:"name"`
	Table     string `json:"table"`
	IsPrimary bool   `json:"isPrimary"`
	PrimaryOf string `json:"primaryOf"`
}

type snapshot struct {
	Servers     []snapshotServer              `json:"servers"`
	LoadHistory map[string][]model.LoadSample `json:"loadHistory"`
}

type staticRackResolver map[model.ServerName]string

func (r staticRackResolver) RackOf(s model.ServerName) string { return r[s] }

func loadSnapshot(path string) (map[model.ServerName][]model.RegionDescriptor, model.RackResolver, map[model.RegionName][]model.LoadSample, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, nil, err
	}
	defer f.Close()

	var snap snapshot
	if err := json.NewDecoder(f).Decode(&snap); err != nil {
		return nil, nil, nil, err
	}

	assignment := make(map[model.ServerName][]model.RegionDescriptor, len(snap.Servers))
	racks := make(staticRackResolver, len(snap.Servers))
	for _, s := range snap.Servers {
		sn := model.ServerName{Host: s.Host, Port: s.Port, StartCode: s.StartCode}
		racks[sn] = s.Rack
		descs := make([]model.RegionDescriptor, 0, len(s.Regions))
		for _, r := range s.Regions {
			descs = append(descs, model.RegionDescriptor{
				Name:      model.RegionName(r.Name),
				Table:     r.Table,
				IsPrimary: r.IsPrimary,
				PrimaryOf: model.RegionName(r.PrimaryOf),
			})
		}
		assignment[sn] = descs
	}

	loadHistory := make(map[model.RegionName][]model.LoadSample, len(snap.LoadHistory))
	for name, samples := range snap.LoadHistory {
		loadHistory[model.RegionName(name)] = samples
	}

	return assignment, racks, loadHistory, nil
}

func main() {
	var (
		inputPath   string
		traceFlag   bool
		metricsAddr string
		seed        int64
		verbosity   int32
	)

	root := &cobra.Command{
		Use:   "rebalance-sim",
		Short: "run one stochastic hill-climbing balance pass over a cluster snapshot",
		RunE: func(cmd *cobra.Command, args []string) error {
			log.SetVerbosity(verbosity)
			ctx := context.Background()

			assignment, racks, loadHistory, err := loadSnapshot(inputPath)
			if err != nil {
				return fmt.Errorf("loading snapshot: %w", err)
			}

			cfg := balancerconfig.DefaultConfig()
			b := balancer.New(cfg, nil, racks)
			b.RefreshClusterStatus(loadHistory)

			if metricsAddr != "" {
				reg := prometheus.NewRegistry()
				b.Metrics().Register(reg)
				go func() {
					mux := http.NewServeMux()
					mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
					srv := &http.Server{Addr: metricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
					if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
						log.Errorf(ctx, "metrics server: %v", err)
					}
				}()
			}

			rnd := rand.New(rand.NewSource(seed))
			report, err := b.Balance(ctx, assignment, rnd, traceFlag)
			if err != nil {
				return err
			}

			printReport(report)
			return nil
		},
	}

	flags := root.Flags()
	flags.StringVar(&inputPath, "input", "", "path to a cluster snapshot JSON file")
	flags.BoolVar(&traceFlag, "trace", false, "render an ASCII sparkline of the best-cost trace")
	flags.StringVar(&metricsAddr, "metrics-addr", "", "if set, serve Prometheus metrics on this address")
	flags.Var(seedValue{&seed}, "seed", "random seed for the search loop")
	flags.Int32Var(&verbosity, "verbosity", 0, "log verbosity level")
	_ = root.MarkFlagRequired("input")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// seedValue adapts an int64 to pflag.Value so --seed can be bound without
// pulling in a full pflag.Int64Var call above the closure.
type seedValue struct{ v *int64 }

func (s seedValue) String() string   { return fmt.Sprintf("%d", *s.v) }
func (s seedValue) Set(v string) error {
	var parsed int64
	if _, err := fmt.Sscanf(v, "%d", &parsed); err != nil {
		return err
	}
	*s.v = parsed
	return nil
}
func (s seedValue) Type() string { return "int64" }

var _ pflag.Value = seedValue{}

func printReport(r balancer.Report) {
	fmt.Printf("run:        %s\n", r.RunID)
	fmt.Printf("ran:        %v\n", r.Ran)
	fmt.Printf("improved:   %v\n", r.Improved)
	fmt.Printf("cost:       %.6f -> %.6f\n", r.InitialCost, r.FinalCost)
	fmt.Printf("steps:      %d\n", r.Steps)
	fmt.Printf("elapsed:    %s\n", r.Elapsed)
	fmt.Printf("moves:      %d\n", len(r.Moves))

	names := make([]string, 0, len(r.Fractions))
	for name := range r.Fractions {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Printf("  %-24s %.4f\n", name, r.Fractions[name])
	}

	if len(r.CostTrace) > 1 {
		fmt.Println(asciigraph.Plot(r.CostTrace, asciigraph.Height(12), asciigraph.Caption("best cost over time")))
	}
}
