/*
 * Copyright (c) 2018 VMware, Inc.
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy of this software and
 * associated documentation files (the "Software"), to deal in the Software without restriction, including
 * without limitation the rights to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is furnished to do
 * so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all copies or substantial
 * portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR IMPLIED, INCLUDING BUT
 * NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY, FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT.
 * IN NO EVENT SHALL THE AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER LIABILITY,
 * WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM, OUT OF OR IN CONNECTION WITH THE
 * SOFTWARE OR THE USE OR OTHER DEALINGS IN THE SOFTWARE.
 */
package worker

import (
	"context"
	"strings"

	"github.com/aws/aws-sdk-go/aws/endpoints"

	"github.com/vmware/vmware-go-kcl-multilang/clientlibrary/config"
	"github.com/vmware/vmware-go-kcl-multilang/clientlibrary/launcher"
	"github.com/vmware/vmware-go-kcl-multilang/clientlibrary/properties"
	"github.com/vmware/vmware-go-kcl-multilang/logger"
)

type (
	// Materializer writes the properties file for one launch.
	Materializer interface {
		Materialize(input properties.MaterializeInput) (*properties.PropertiesFile, error)
	}

	// Launcher replaces the current process with the daemon. Launch only returns on failure.
	Launcher interface {
		Launch(ctx context.Context, propertiesPath string, env ...string) error
	}

	/**
	 * Worker is the entry point a container uses to start consuming a stream. It resolves the
	 * worker identity, renders the daemon configuration and hands the process over to the
	 * MultiLangDaemon, which then owns shard syncing, lease taking and checkpointing.
	 */
	Worker struct {
		streamName string
		regionName string

		kclConfig    *config.Configuration
		materializer Materializer
		launcher     Launcher
	}
)

// NewWorker constructs a Worker for the given stream and region.
func NewWorker(kclConfig *config.Configuration, streamName, regionName string) *Worker {
	if kclConfig.Logger == nil {
		kclConfig.Logger = logger.GetDefaultLogger()
	}

	return &Worker{
		streamName:   streamName,
		regionName:   regionName,
		kclConfig:    kclConfig,
		materializer: properties.NewMaterializer(kclConfig),
		launcher:     launcher.NewLauncher(kclConfig),
	}
}

// WithMaterializer is used to provide a custom properties writer, mainly for unit testing.
func (w *Worker) WithMaterializer(m Materializer) *Worker {
	w.materializer = m
	return w
}

// WithLauncher is used to provide a custom launcher, mainly for unit testing.
func (w *Worker) WithLauncher(l Launcher) *Worker {
	w.launcher = l
	return w
}

// Run materializes the properties file and execs into the daemon. extra is an optional JSON
// object of properties appended to the rendered template. Run never reaches the launch
// phase after a failure, and on success it does not return.
func (w *Worker) Run(ctx context.Context, extra string) error {
	log := w.kclConfig.Logger.WithFields(logger.Fields{"stream": w.streamName, "region": w.regionName})

	if err := w.kclConfig.Validate(); err != nil {
		log.Errorf("Invalid configuration: %+v", err)
		return err
	}
	if strings.TrimSpace(w.regionName) == "" {
		return &config.ConfigurationError{Key: properties.VarRegion, Reason: "must be set"}
	}
	if !isKnownRegion(w.regionName) {
		log.Warnf("Region %s is not known to the AWS SDK endpoint table", w.regionName)
	}

	propertiesFile, err := w.materializer.Materialize(properties.MaterializeInput{
		StreamName: w.streamName,
		RegionName: w.regionName,
		WorkerID:   w.kclConfig.WorkerID,
		Extra:      extra,
	})
	if err != nil {
		log.Errorf("Failed to materialize properties: %+v", err)
		return err
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	log.Infof("Starting MultiLangDaemon as worker %s", propertiesFile.WorkerID)
	return w.launcher.Launch(ctx, propertiesFile.Path,
		config.EnvDaemonApplicationName+"="+w.kclConfig.ApplicationName,
		config.EnvDaemonStreamName+"="+w.streamName,
		config.EnvDaemonRegion+"="+w.regionName,
		config.EnvDaemonWorkerID+"="+propertiesFile.WorkerID,
	)
}

func isKnownRegion(region string) bool {
	_, ok := endpoints.PartitionForRegion(endpoints.DefaultPartitions(), region)
	return ok
}
