//go:build mage

package main

import (
	"github.com/magefile/mage/mg"
)

type Build mg.Namespace

// Compiles every package and the testbed binary.
func (Build) Engine() error {
	if _, err := executeCmd("go", withArgs("build", "-o", "bin/kiln", "."), withStream()); err != nil {
		return err
	}
	return nil
}

// Runs go vet over the module.
func (Build) Vet() error {
	_, err := executeCmd("go", withArgs("vet", "./..."), withStream())
	return err
}

// Runs the tests, with asserts panicking.
func (Build) Test() error {
	_, err := executeCmd("go", withArgs("test", "-race", "-tags", "debug", "./..."), withStream())
	return err
}
