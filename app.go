package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/kwv/roomsense/pos"
)

// App encapsulates the application state and dependencies
type App struct {
	Config     *pos.Config
	Session    *pos.PositioningSession
	MQTTClient *pos.MQTTClient
	Publisher  *pos.Publisher
	History    *pos.HistoryStore
	PushRadio  *pos.PushRadio
	Local      *pos.LocalClassifier
	Remote     *pos.RemoteClassifier
	Graphs     []*pos.FloorGraph

	// CLI flags (effectively dependencies)
	ConfigFile string
	ReplayFile string
	OutputDir  string
	HTTPPort   int
}

// NewApp creates a new App instance
func NewApp() *App {
	return &App{}
}

// ApplyOptions applies CLI options to the App instance
func (a *App) ApplyOptions(opts AppOptions) {
	a.ConfigFile = opts.ConfigFile
	a.ReplayFile = opts.ReplayFile
	a.OutputDir = opts.OutputDir
	a.HTTPPort = opts.HTTPPort
}

// pipeline bundles everything loaded from config and artifacts.
type pipeline struct {
	config *pos.Config
	meta   *pos.ClassifierMetadata
	model  *pos.CentroidModel
	graphs []*pos.FloorGraph
}

// loadPipeline loads config, classifier artifacts, and floor graphs, and
// cross-checks their shapes.
func (a *App) loadPipeline() (*pipeline, error) {
	config, err := pos.LoadConfig(a.ConfigFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	log.Printf("Loaded config from %s", a.ConfigFile)
	if a.HTTPPort != 0 {
		config.HTTPPort = a.HTTPPort
	}

	features, err := pos.LoadFeatureList(config.Artifacts.FeatureList)
	if err != nil {
		return nil, err
	}

	model, err := pos.LoadCentroidModel(config.Artifacts.Model)
	if err != nil {
		return nil, err
	}
	if model.NumFeatures() != len(features) {
		return nil, fmt.Errorf("model expects %d features, feature list has %d",
			model.NumFeatures(), len(features))
	}

	graphs, err := pos.LoadFloorGraphs(config.GraphDir)
	if err != nil {
		return nil, err
	}
	if len(graphs) == 0 {
		log.Printf("Warning: no floor graphs loaded from %s, labels will not resolve to map nodes", config.GraphDir)
	}

	meta := pos.NewClassifierMetadata(features, model.Classes)
	return &pipeline{config: config, meta: meta, model: model, graphs: graphs}, nil
}

// RunCheck validates the deployment artifacts and exits.
func (a *App) RunCheck() error {
	p, err := a.loadPipeline()
	if err != nil {
		return err
	}

	fmt.Printf("Config:       %s\n", a.ConfigFile)
	fmt.Printf("Features:     %d access points\n", p.meta.NumFeatures())
	fmt.Printf("Classes:      %d locations\n", p.meta.NumClasses())
	fmt.Printf("Floor graphs: %d\n", len(p.graphs))
	for _, g := range p.graphs {
		fmt.Printf("  %s: %d nodes, %d edges\n", g.Key(), len(g.Nodes), len(g.Edges))
	}

	// Every class label should land on a map node; report the holes.
	resolver := pos.NewNodeResolver(p.config.Overrides)
	unresolved := 0
	for _, label := range p.meta.ClassLabels {
		if resolver.Resolve(label, p.graphs) == nil {
			fmt.Printf("  unresolved label: %q\n", label)
			unresolved++
		}
	}
	if unresolved > 0 {
		fmt.Printf("%d of %d labels resolve to no node (add labelOverrides entries)\n",
			unresolved, p.meta.NumClasses())
	} else {
		fmt.Println("All class labels resolve to map nodes")
	}
	return nil
}

// RunRender renders every floor graph to a PNG in the output directory.
func (a *App) RunRender() error {
	p, err := a.loadPipeline()
	if err != nil {
		return err
	}
	if len(p.graphs) == 0 {
		return fmt.Errorf("no floor graphs to render in %s", p.config.GraphDir)
	}

	for _, g := range p.graphs {
		name := strings.ReplaceAll(g.Key(), "/", "_") + ".png"
		path := filepath.Join(a.OutputDir, name)

		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("creating %s: %w", path, err)
		}
		renderErr := pos.NewFloorRenderer(g).WritePNG(f, "")
		closeErr := f.Close()
		if renderErr != nil {
			return renderErr
		}
		if closeErr != nil {
			return fmt.Errorf("writing %s: %w", path, closeErr)
		}
		fmt.Printf("Rendered %s -> %s\n", g.Key(), path)
	}
	return nil
}

// RunService starts the positioning pipeline and the HTTP server, then
// blocks until interrupted.
func (a *App) RunService() error {
	fmt.Println("Starting roomsense service...")

	p, err := a.loadPipeline()
	if err != nil {
		return err
	}
	a.Config = p.config
	a.Graphs = p.graphs

	// Radio: replay file for simulation, HTTP-pushed observations otherwise.
	var radio pos.Radio
	if a.ReplayFile != "" {
		replay, err := pos.LoadReplayRadio(a.ReplayFile)
		if err != nil {
			return err
		}
		radio = replay
		log.Printf("Replaying scan bursts from %s", a.ReplayFile)
	} else {
		a.PushRadio = pos.NewPushRadio()
		radio = a.PushRadio
		log.Println("Accepting scan observations via POST /scan")
	}

	if p.config.Remote.URL != "" {
		a.Remote = pos.NewRemoteClassifier(p.config.Remote.URL,
			pos.WithRemoteTimeout(p.config.Remote.Timeout()))
		log.Printf("Remote prediction service: %s", p.config.Remote.URL)
	}

	a.Local = pos.NewLocalClassifier(p.meta, p.model)
	a.Session = pos.NewPositioningSession(pos.SessionDeps{
		Scans:          pos.NewScanSource(radio, p.config.Scan.Timing()),
		Local:          a.Local,
		Remote:         a.Remote,
		Resolver:       pos.NewNodeResolver(p.config.Overrides),
		Graphs:         p.graphs,
		PreferRemote:   p.config.PreferRemote,
		DebounceWindow: p.config.DebounceWindow(),
	})

	if p.config.HistoryPath != "" {
		history, err := pos.OpenHistory(p.config.HistoryPath, p.config.HistoryLimit)
		if err != nil {
			return err
		}
		a.History = history
		log.Printf("Location history: %s (keeping %d entries)", p.config.HistoryPath, p.config.HistoryLimit)
	}

	mqttClient, err := pos.InitMQTT(p.config.MQTT)
	if err != nil {
		return fmt.Errorf("initializing MQTT: %w", err)
	}
	a.MQTTClient = mqttClient
	if mqttClient != nil {
		a.Publisher = pos.NewPublisher(mqttClient.GetClient(), p.config.MQTT.PublishPrefix)
		fmt.Println("MQTT location publisher initialized")
	}

	a.Session.OnLocation(func(update pos.LocationUpdate) {
		if a.Publisher != nil {
			if err := a.Publisher.PublishLocation(update); err != nil {
				log.Printf("Error publishing location: %v", err)
			}
		}
		if a.History != nil {
			entry := pos.HistoryEntry{
				Timestamp: update.Time,
				Label:     update.Label,
				Status:    update.Status,
			}
			if update.Location != nil {
				entry.NodeID = update.Location.Node.ID
				entry.BuildingID = update.Location.Graph.BuildingID
				entry.FloorID = update.Location.Graph.FloorID
			}
			if err := a.History.Append(entry); err != nil {
				log.Printf("Error appending history: %v", err)
			}
		}
	})
	a.Session.OnPrediction(func(res *pos.PredictionResult) {
		if a.Publisher != nil {
			if err := a.Publisher.PublishPrediction(res); err != nil {
				log.Printf("Error publishing prediction: %v", err)
			}
		}
	})

	if err := a.Session.Start(); err != nil {
		return fmt.Errorf("starting positioning session: %w", err)
	}

	server := &http.Server{
		Addr:    fmt.Sprintf("0.0.0.0:%d", p.config.HTTPPort),
		Handler: newHTTPServer(a),
	}
	go func() {
		log.Printf("[HTTP] Starting server on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("[HTTP] Server error: %v", err)
		}
	}()

	fmt.Println("\nService Running")
	fmt.Println("===============")
	fmt.Printf("\nHTTP endpoints (port %d):\n", p.config.HTTPPort)
	fmt.Println("  GET  /health        - Health and scan state")
	fmt.Println("  GET  /position      - Current resolved position")
	fmt.Println("  GET  /latest        - Latest prediction per source")
	fmt.Println("  GET  /locations     - Floor graphs and nodes")
	fmt.Println("  GET  /history       - Recent resolved positions")
	fmt.Println("  GET  /route         - Shortest path between two nodes")
	fmt.Println("  GET  /floorplan.png - Floor graph rendering")
	fmt.Println("  POST /predict       - Classify a posted scan")
	if a.PushRadio != nil {
		fmt.Println("  POST /scan          - Push scan observations")
	}
	fmt.Println("\nPress Ctrl+C to stop")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	fmt.Println("\nShutting down service...")
	a.Session.Stop()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("[HTTP] Shutdown error: %v", err)
	}
	if a.History != nil {
		_ = a.History.Close()
	}
	if a.MQTTClient != nil {
		a.MQTTClient.Disconnect()
	}
	fmt.Println("Service stopped")
	return nil
}
