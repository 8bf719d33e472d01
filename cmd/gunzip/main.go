// Copyright 2023 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"

	"cloudeng.io/cmdutil"
	"cloudeng.io/cmdutil/subcmd"
	"cloudeng.io/errors"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/cosnicolaou/gunzip"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/file/s3file"
	"github.com/schollz/progressbar/v2"
	"golang.org/x/crypto/ssh/terminal"
)

type CommonFlags struct {
	Verbose bool `subcmd:"verbose,false,verbose debug/trace information"`
}

type catFlags struct {
	CommonFlags
}

type unzipFlags struct {
	CommonFlags
	ProgressBar bool   `subcmd:"progress,true,display a progress bar"`
	OutputFile  string `subcmd:"output,,'output file or s3 path, omit for stdout'"`
}

type noFlags struct{}

var cmdSet *subcmd.CommandSet

func init() {
	catCmd := subcmd.NewCommand("cat",
		subcmd.MustRegisterFlagStruct(&catFlags{}, nil, nil),
		cat, subcmd.AtLeastNArguments(0))
	catCmd.Document(`decompress gzip files or stdin. Files may be local, on S3 or a URL.`)

	unzipCmd := subcmd.NewCommand("unzip",
		subcmd.MustRegisterFlagStruct(&unzipFlags{}, nil, nil),
		unzip, subcmd.ExactlyNumArguments(1))
	unzipCmd.Document(`decompress a gzip file.`)

	scanCmd := subcmd.NewCommand("scan",
		subcmd.MustRegisterFlagStruct(&noFlags{}, nil, nil),
		scan, subcmd.AtLeastNArguments(1))
	scanCmd.Document(`scan a gzip file reporting each member's metadata, sizes and block structure; the entire file is decoded and verified in the process.`)

	cmdSet = subcmd.NewCommandSet(catCmd, unzipCmd, scanCmd)
	cmdSet.Document(`decompress and inspect gzip files. Files may be local, on S3 or a URL.`)

	file.RegisterImplementation("s3", func() file.Implementation {
		return s3file.NewImplementation(
			s3file.NewDefaultProvider(session.Options{}), s3file.Options{})
	})
}

func progressBar(ctx context.Context, progressBarWr io.Writer, ch chan gunzip.Progress, size int64) {
	bar := progressbar.NewOptions64(size,
		progressbar.OptionSetBytes64(size),
		progressbar.OptionSetWriter(progressBarWr),
		progressbar.OptionSetPredictTime(true))
	bar.RenderBlank()
	for {
		select {
		case p, ok := <-ch:
			if !ok {
				fmt.Fprintf(progressBarWr, "\n")
				return
			}
			bar.Add(int(p.Compressed))
		case <-ctx.Done():
			return
		}
	}
}

func openFileOrURL(ctx context.Context, name string) (io.Reader, int64, func(context.Context) error, error) {
	if strings.HasPrefix(name, "http") {
		resp, err := http.Get(name)
		if err != nil {
			return nil, 0, nil, err
		}
		return resp.Body,
			resp.ContentLength,
			func(context.Context) error {
				resp.Body.Close()
				return nil
			},
			err
	}
	info, err := file.Stat(ctx, name)
	if err != nil {
		return nil, 0, nil, err
	}
	file, err := file.Open(ctx, name)
	if err != nil {
		return nil, 0, nil, err
	}
	return file.Reader(ctx), info.Size(), file.Close, nil
}

func createFile(ctx context.Context, name string) (io.Writer, func(context.Context) error, error) {
	if len(name) == 0 {
		return os.Stdout,
			func(context.Context) error {
				return nil
			},
			nil
	}
	file, err := file.Create(ctx, name)
	if err != nil {
		return nil, nil, err
	}
	return file.Writer(ctx), file.Close, nil
}

func main() {
	cmdSet.MustDispatch(context.Background())
}

func optsFromCommonFlags(cl *CommonFlags) []gunzip.Option {
	return []gunzip.Option{
		gunzip.Verbose(cl.Verbose),
	}
}

func cat(ctx context.Context, values interface{}, args []string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	cl := values.(*catFlags)
	cmdutil.HandleSignals(cancel, os.Interrupt)

	opts := optsFromCommonFlags(&cl.CommonFlags)

	if len(args) == 0 {
		rd := gunzip.NewReader(ctx, os.Stdin, opts...)
		_, err := io.Copy(os.Stdout, rd)
		return err
	}

	for _, inputFile := range args {
		rd, _, readerCleanup, err := openFileOrURL(ctx, inputFile)
		if err != nil {
			return err
		}
		defer readerCleanup(ctx)

		dc := gunzip.NewReader(ctx, rd, opts...)

		_, err = io.Copy(os.Stdout, dc)
		if err != nil {
			return err
		}
	}
	return nil
}

func optsFromUnzipFlags(cl *unzipFlags) (
	opts []gunzip.Option,
	progressBarCh chan gunzip.Progress,
	isTTY bool) {

	opts = optsFromCommonFlags(&cl.CommonFlags)

	isTTY = terminal.IsTerminal(int(os.Stdout.Fd()))
	if cl.ProgressBar && (len(cl.OutputFile) > 0 || !isTTY) {
		ch := make(chan gunzip.Progress, 1)
		opts = append(opts, gunzip.SendUpdates(ch))
		progressBarCh = ch
	}
	return
}

func unzip(ctx context.Context, values interface{}, args []string) error {
	ctx, cancel := context.WithCancel(ctx)
	cmdutil.HandleSignals(cancel, os.Interrupt)
	cl := values.(*unzipFlags)

	opts, progressBarCh, isTTY := optsFromUnzipFlags(cl)

	rd, size, readerCleanup, err := openFileOrURL(ctx, args[0])
	if err != nil {
		return err
	}
	defer readerCleanup(ctx)

	wr, writerCleanup, err := createFile(ctx, cl.OutputFile)
	if err != nil {
		return err
	}

	// Kick off the progress bar, if requested and the output is either
	// written to a file or to a stdout that is not a terminal.
	var (
		progressBarWg sync.WaitGroup
		progressBarWr = os.Stdout
	)

	if progressBarCh != nil {
		progressBarWg.Add(1)
		if !isTTY {
			progressBarWr = os.Stderr
		}
		go func() {
			progressBar(ctx, progressBarWr, progressBarCh, size)
			progressBarWg.Done()
		}()
	}

	dc := gunzip.NewReader(ctx, rd, opts...)

	errs := &errors.M{}
	_, err = io.Copy(wr, dc)
	errs.Append(err)
	err = writerCleanup(ctx)
	errs.Append(err)

	if progressBarCh != nil {
		close(progressBarCh)
		progressBarWg.Wait()
	}

	return errs.Err()
}
