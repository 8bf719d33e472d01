// Copyright 2023 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"fmt"
	"os"

	"cloudeng.io/cmdutil"
	"cloudeng.io/errors"
	"github.com/cosnicolaou/gunzip"
)

func scanFile(ctx context.Context, name string) error {
	rd, _, readerCleanup, err := openFileOrURL(ctx, name)
	if err != nil {
		return err
	}
	defer readerCleanup(ctx)
	sc := gunzip.NewScanner(rd)
	for sc.Scan(ctx) {
		member := sc.Member()
		fmt.Println(name, member.String())
		blocks := member.Blocks
		fmt.Printf("  blocks: %v stored, %v fixed, %v dynamic; %v literal bytes, %v match bytes\n",
			blocks.StoredBlocks, blocks.FixedBlocks, blocks.DynamicBlocks,
			blocks.LiteralBytes, blocks.MatchBytes)
	}
	return sc.Err()
}

func scan(ctx context.Context, values interface{}, args []string) error {
	ctx, cancel := context.WithCancel(ctx)
	cmdutil.HandleSignals(cancel, os.Interrupt)
	errs := errors.M{}
	for _, arg := range args {
		errs.Append(scanFile(ctx, arg))
	}
	return errs.Err()
}
