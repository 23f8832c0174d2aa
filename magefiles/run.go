//go:build mage

package main

import (
	"fmt"

	"github.com/magefile/mage/mg"
)

type Run mg.Namespace

// Engine runs the asset pipeline demo binary (cmd/assetpipeline).
func (Run) Engine() error {
	if err := buildShaders(); err != nil {
		return err
	}
	fmt.Println("Run assetpipeline...")
	if _, err := executeCmd("go", withArgs("run", "./cmd/assetpipeline"), withStream()); err != nil {
		return err
	}
	return nil
}
