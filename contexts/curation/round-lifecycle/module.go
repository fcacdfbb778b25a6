package roundlifecycle

import (
	"log/slog"

	httpadapter "curator/contexts/curation/round-lifecycle/adapters/http"
	"curator/contexts/curation/round-lifecycle/adapters/memory"
	"curator/contexts/curation/round-lifecycle/adapters/render"
	"curator/contexts/curation/round-lifecycle/application/commands"
	"curator/contexts/curation/round-lifecycle/ports"
)

type Module struct {
	Handler httpadapter.Handler
	Store   *memory.Store
	Gateway *memory.Gateway
}

type Dependencies struct {
	Provider   ports.RoundProvider
	Registry   ports.ThreadRegistry
	Polls      ports.PollStore
	Gateway    ports.DiscussionGateway
	Renderer   ports.Renderer
	Clock      ports.Clock
	IDGen      ports.IDGenerator
	ForumID    int64
	SiteURL    string
	ListingURL string
	Logger     *slog.Logger
}

func NewModule(deps Dependencies) Module {
	lifecycleUseCase := commands.LifecycleUseCase{
		Provider:   deps.Provider,
		Registry:   deps.Registry,
		Polls:      deps.Polls,
		Gateway:    deps.Gateway,
		Renderer:   deps.Renderer,
		Clock:      deps.Clock,
		IDGen:      deps.IDGen,
		Locks:      commands.NewRoundLocks(),
		ForumID:    deps.ForumID,
		SiteURL:    deps.SiteURL,
		ListingURL: deps.ListingURL,
		Logger:     deps.Logger,
	}
	return Module{
		Handler: httpadapter.Handler{
			Lifecycle: lifecycleUseCase,
			Logger:    deps.Logger,
		},
	}
}

func NewInMemoryModule(logger *slog.Logger) Module {
	store := memory.NewStore()
	gateway := memory.NewGateway()
	module := NewModule(Dependencies{
		Provider:   store,
		Registry:   store,
		Polls:      store,
		Gateway:    gateway,
		Renderer:   render.NewRenderer(),
		Clock:      &memory.Clock{},
		IDGen:      &memory.IDGenerator{},
		ForumID:    120,
		SiteURL:    "https://osu.ppy.sh",
		ListingURL: "https://loved.sh",
		Logger:     logger,
	})
	module.Store = store
	module.Gateway = gateway
	return module
}
