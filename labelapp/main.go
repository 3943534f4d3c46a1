package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/harrison-roh/tensorflow-label-image/labelapp/api"
	"github.com/harrison-roh/tensorflow-label-image/labelapp/constants"
	"github.com/harrison-roh/tensorflow-label-image/labelapp/data"
	"github.com/harrison-roh/tensorflow-label-image/labelapp/imgtensor"
	"github.com/harrison-roh/tensorflow-label-image/labelapp/inference"
	"github.com/harrison-roh/tensorflow-label-image/labelapp/ranking"
	"k8s.io/klog/v2"
)

func main() {
	klog.InitFlags(nil)
	modelsPath := flag.String("models", constants.ModelsPath, "Model path for inference")
	minPercent := flag.Float64("min", constants.DefaultMinPercent, "Min probability (%) of printed labels")
	outFile := flag.String("out", "", "Write the normalized input image to this file")
	maxDim := flag.Int("maxdim", 0, "Shrink images whose longest side exceeds this size (0 to disable)")
	dsn := flag.String("db", "", "MySQL DSN for labeling history (disabled if empty)")
	serveAddr := flag.String("serve", "", "Serve HTTP API on this address (e.g. "+constants.ServeAddr+")")
	flag.Parse()
	defer klog.Flush()

	if err := checkArgs(*serveAddr, flag.NArg(), *minPercent); err != nil {
		fmt.Fprintf(os.Stderr, "%v\nUsage: %s [flags] <image>...\n", err, os.Args[0])
		flag.PrintDefaults()
		os.Exit(2)
	}

	i, err := inference.Load(*modelsPath)
	if err != nil {
		klog.Exitf("Fail to load model: %+v", err)
	}
	defer i.Destroy()

	var m *data.Manager
	if *dsn != "" {
		if m, err = data.New(*dsn); err != nil {
			klog.Exitf("Fail to init history: %+v", err)
		}
		defer m.Destroy()
	}

	if *serveAddr != "" {
		a := &api.APIs{
			L:      i,
			MaxDim: *maxDim,
		}
		if m != nil {
			a.M = m
		}
		if err := serve(*serveAddr, api.NewRouter(a)); err != nil {
			klog.Errorf("Server failed: %v", err)
		}
		return
	}

	failed := 0
	for idx, imagePath := range flag.Args() {
		output, err := labelImage(i, m, imagePath, *minPercent, *maxDim, outPath(*outFile, idx, flag.NArg()))
		if err != nil {
			klog.Errorf("%+v", err)
			failed++
			continue
		}

		if flag.NArg() > 1 {
			fmt.Printf("%s:\n", imagePath)
		}
		fmt.Print(output)
	}

	if failed > 0 {
		klog.Flush()
		os.Exit(1)
	}
}

func labelImage(i *inference.Inference, m *data.Manager, imagePath string, minPercent float64, maxDim int, out string) (string, error) {
	img, err := imgtensor.Open(imagePath)
	if err != nil {
		return "", err
	}

	r, err := i.Run(imgtensor.Shrink(img, maxDim), minPercent)
	if err != nil {
		return "", err
	}

	if out != "" {
		if err := imgtensor.Save(r.NormalizedImage(), out); err != nil {
			return "", err
		}
		klog.V(1).Infof("Normalized image written: %s", out)
	}

	if m != nil {
		model, _ := i.Info()["model"].(string)
		if id, err := m.Record(model, filepath.Base(imagePath), minPercent, r.Labels); err != nil {
			klog.Errorf("Fail to record result: %v", err)
		} else {
			klog.V(1).Infof("Recorded %s as %s", imagePath, id)
		}
	}

	return ranking.Format(r.Labels), nil
}

// 모델 로드 전에 인자 검사
func checkArgs(serveAddr string, nrImages int, minPercent float64) error {
	if serveAddr == "" && nrImages == 0 {
		return errors.New("No image given")
	}

	return ranking.ValidatePercent(minPercent)
}

// 이미지가 여러 개면 out 파일명에 순번을 붙임 (normalized.png -> normalized-1.png)
func outPath(out string, idx, total int) string {
	if out == "" || total <= 1 {
		return out
	}

	ext := filepath.Ext(out)
	return fmt.Sprintf("%s-%d%s", strings.TrimSuffix(out, ext), idx+1, ext)
}

func serve(addr string, h http.Handler) error {
	server := &http.Server{
		Addr:    addr,
		Handler: h,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		klog.Infof("Serving on %s", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	klog.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return server.Shutdown(shutdownCtx)
}
