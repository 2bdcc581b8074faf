package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/dongdio/s3mock/global"
	"github.com/dongdio/s3mock/initialize"
	"github.com/dongdio/s3mock/internal/conf"
	"github.com/dongdio/s3mock/internal/s3store"
	"github.com/dongdio/s3mock/server/s3"
	"github.com/dongdio/s3mock/utility/utils"
)

// ServerCmd starts the S3 emulator, binding the HTTP listener and, if
// certificates are configured, the HTTPS listener as well.
var ServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the s3mock server",
	Long:  `Start the s3mock HTTP(S) server implementing the S3 REST API.`,
	Run: func(cmd *cobra.Command, args []string) {
		initialize.InitConfig()
		initialize.InitLog()

		if !global.Debug {
			gin.SetMode(gin.ReleaseMode)
		}

		store, err := s3store.New(s3store.Config{
			Root:              conf.Conf.Root,
			RetainFilesOnExit: conf.Conf.RetainFilesOnExit,
			InitialBuckets:    conf.Conf.InitialBuckets,
			ValidKmsKeys:      conf.Conf.ValidKmsKeys,
		})
		if err != nil {
			log.Fatalf("failed to initialize object store: %v", err)
		}

		handler := &s3.Handler{
			Store:       store,
			Region:      conf.Conf.Region,
			OwnerID:     "75aa57f09aa0c8caeab4f8c24e99d10f8e7faeebf76c078efc7c6caea54ba06a",
			OwnerName:   "s3mock",
			ServiceHost: fmt.Sprintf("s3.%s.amazonaws.com", conf.Conf.Region),
		}
		r := s3.NewRouter(handler)

		var sweepCron *cron.Cron
		if conf.Conf.LifecycleSweepIntervalSeconds > 0 {
			sweepCron = cron.New(cron.WithChain(cron.DelayIfStillRunning(cron.DefaultLogger)))
			spec := fmt.Sprintf("@every %ds", conf.Conf.LifecycleSweepIntervalSeconds)
			if _, err := sweepCron.AddFunc(spec, func() { sweepLifecycleOnce(store) }); err != nil {
				log.Errorf("failed to schedule lifecycle sweep: %v", err)
			} else {
				sweepCron.Start()
			}
		}

		var httpHandler http.Handler = r
		if conf.Conf.Scheme.EnableH2c {
			log.Debug("enabling H2C (HTTP/2 over cleartext) support")
			httpHandler = h2c.NewHandler(r, &http2.Server{})
		}

		var httpSrv, httpsSrv *http.Server

		if conf.Conf.Scheme.HttpPort != -1 {
			addr := fmt.Sprintf("%s:%d", conf.Conf.Scheme.Address, conf.Conf.Scheme.HttpPort)
			log.Infof("starting HTTP server on %s", addr)
			httpSrv = &http.Server{
				Addr:         addr,
				Handler:      httpHandler,
				ReadTimeout:  5 * time.Minute,
				WriteTimeout: 5 * time.Minute,
				IdleTimeout:  120 * time.Second,
			}
			go func() {
				if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatalf("failed to start HTTP server: %v", err)
				}
			}()
		}

		if conf.Conf.Scheme.HttpsPort != -1 {
			addr := fmt.Sprintf("%s:%d", conf.Conf.Scheme.Address, conf.Conf.Scheme.HttpsPort)
			if !utils.Exists(conf.Conf.Scheme.CertFile) || !utils.Exists(conf.Conf.Scheme.KeyFile) {
				log.Errorf("certificate file or key file not found: %s, %s", conf.Conf.Scheme.CertFile, conf.Conf.Scheme.KeyFile)
				log.Warn("HTTPS server will not start due to missing certificate files")
			} else {
				log.Infof("starting HTTPS server on %s", addr)
				httpsSrv = &http.Server{
					Addr:         addr,
					Handler:      r,
					ReadTimeout:  5 * time.Minute,
					WriteTimeout: 5 * time.Minute,
					IdleTimeout:  120 * time.Second,
				}
				go func() {
					if err := httpsSrv.ListenAndServeTLS(conf.Conf.Scheme.CertFile, conf.Conf.Scheme.KeyFile); err != nil && !errors.Is(err, http.ErrServerClosed) {
						log.Fatalf("failed to start HTTPS server: %v", err)
					}
				}()
			}
		}

		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		log.Info("shutdown signal received, gracefully shutting down...")
		if sweepCron != nil {
			<-sweepCron.Stop().Done()
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		var wg sync.WaitGroup
		if httpSrv != nil {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if err := httpSrv.Shutdown(ctx); err != nil {
					log.Errorf("HTTP server shutdown error: %v", err)
				}
			}()
		}
		if httpsSrv != nil {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if err := httpsSrv.Shutdown(ctx); err != nil {
					log.Errorf("HTTPS server shutdown error: %v", err)
				}
			}()
		}
		wg.Wait()

		if err := store.Close(conf.Conf.RetainFilesOnExit); err != nil {
			log.Errorf("failed to remove store root: %v", err)
		}
		log.Info("server stopped")
	},
}

// sweepLifecycleOnce runs one pass of every bucket's lifecycle rules,
// expiring old versions and aborting stale multipart uploads.
func sweepLifecycleOnce(store *s3store.Store) {
	expired, aborted, err := store.SweepLifecycle(time.Now())
	if err != nil {
		log.Warnf("lifecycle sweep failed: %v", err)
		return
	}
	if expired > 0 || aborted > 0 {
		log.Infof("lifecycle sweep: expired %d version(s), aborted %d upload(s)", expired, aborted)
	}
}

func init() {
	RootCmd.AddCommand(ServerCmd)
}
