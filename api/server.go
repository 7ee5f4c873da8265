package api

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/meghashyamc/ragconsole/config"
	"github.com/meghashyamc/ragconsole/db/kvdb"
	"github.com/meghashyamc/ragconsole/db/searchdb"
	"github.com/meghashyamc/ragconsole/db/vectordb"
	"github.com/meghashyamc/ragconsole/logger"
	"github.com/meghashyamc/ragconsole/services/index"
	"github.com/meghashyamc/ragconsole/services/model"
	"github.com/meghashyamc/ragconsole/services/parse"
	"github.com/meghashyamc/ragconsole/services/search"
	"github.com/meghashyamc/ragconsole/validation"
)

const shutdownTimeout = 10 * time.Second

type server struct {
	cfg           *config.Config
	router        *gin.Engine
	httpServer    *http.Server
	kvdb          kvdb.DB
	searchdb      searchdb.DB
	vectors       *vectordb.Store
	modelService  *model.Service
	indexService  *index.Service
	searchService *search.Service
	validator     *validation.Validator
	logger        logger.Logger
}

func Run(ctx context.Context, cfg *config.Config) error {
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt)

	defer cancel()

	s := &server{
		cfg:    cfg,
		logger: logger.New(cfg.GetLogLevel()),
	}
	if err := s.setupDependencies(); err != nil {
		return err
	}
	s.setupRouter()
	s.setupHTTPServer()
	s.setupGracefulShutdown(ctx)

	return nil
}

func (s *server) setupDependencies() error {
	var err error
	boltDB, err := kvdb.New(s.logger, s.cfg)
	if err != nil {
		s.logger.Error("error creating kvDB", "err", err.Error())
		return err
	}
	s.kvdb = boltDB

	bleveDB, err := searchdb.New(s.logger, s.cfg)
	if err != nil {
		s.logger.Error("error creating searchDB", "err", err.Error())
		return err
	}
	s.searchdb = bleveDB

	s.vectors, err = vectordb.New(s.logger, s.kvdb)
	if err != nil {
		s.logger.Error("error creating vector store", "err", err.Error())
		return err
	}

	s.modelService, err = model.NewFromConfig(s.logger, s.cfg)
	if err != nil {
		s.logger.Error("error creating model service", "err", err.Error())
		return err
	}

	s.validator, err = validation.New(s.logger)
	if err != nil {
		s.logger.Error("error creating validator", "err", err.Error())
		return err
	}

	s.indexService = index.New(s.logger, parse.New(s.logger), s.searchdb, s.vectors, s.kvdb, s.modelService, index.Options{
		Workers:     s.cfg.GetUploadWorkers(),
		MaxFileSize: int64(s.cfg.GetUploadMaxSizeMB()) << 20,
	})
	s.searchService = search.New(s.logger, s.searchdb, s.vectors, s.modelService, search.Options{
		Limit:            s.cfg.GetSearchLimit(),
		VectorCandidates: s.cfg.GetVectorCandidates(),
	})

	return nil

}

func (s *server) setupRouter() {
	router := newRouter()
	router.MaxMultipartMemory = int64(s.cfg.GetUploadMaxSizeMB()) << 20

	router.Use(loggingMiddleware(s.logger))

	setupRoutes(router, s.logger, s.modelService, s.indexService, s.searchService, s.validator)

	s.router = router
}

func (s *server) setupHTTPServer() {

	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%s", s.cfg.GetPort()),
		Handler: s.router.Handler(),
	}
	s.httpServer = httpServer
	s.logger.Info("starting http server", "addr", httpServer.Addr)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()
}

func (s *server) setupGracefulShutdown(ctx context.Context) {

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		<-ctx.Done()
		s.logger.Info("starting to shut down http server")
		shutdownCtx := context.Background()
		shutdownCtx, cancel := context.WithTimeout(shutdownCtx, shutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("error shutting down http server", "err", err)
		}
		s.modelService.Close()
		if err := s.searchdb.Close(); err != nil {
			s.logger.Error("error closing searchDB", "err", err)
		}
		if err := s.kvdb.Close(); err != nil {
			s.logger.Error("error closing kvDB", "err", err)
		}
		s.logger.Info("shut down http server successfully")
	}()

	wg.Wait()
}
