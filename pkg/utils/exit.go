/*
 * Copyright (C) 2022 IBM, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 *
 */

package utils

import (
	"os"
	"os/signal"
	"sync"
	"syscall"

	log "github.com/sirupsen/logrus"
)

var (
	exitChannel chan struct{}
	setupOnce   sync.Once
	closeOnce   sync.Once
)

// ExitChannel returns the channel closed when a termination signal is received.
func ExitChannel() <-chan struct{} {
	SetupElegantExit()
	return exitChannel
}

// CloseExitChannel asks loop goroutines to stop; used by orchestrated shutdowns.
func CloseExitChannel() {
	SetupElegantExit()
	closeOnce.Do(func() {
		close(exitChannel)
	})
}

// SetupElegantExit installs the signal handler that closes the exit channel
// on SIGINT/SIGTERM. Safe to call more than once.
func SetupElegantExit() {
	setupOnce.Do(func() {
		log.Debugf("entering SetupElegantExit")
		exitChannel = make(chan struct{})
		exitSigChan := make(chan os.Signal, 1)
		signal.Notify(exitSigChan, syscall.SIGINT, syscall.SIGTERM)
		go func() {
			sig := <-exitSigChan
			log.Debugf("received exit signal = %v", sig)
			closeOnce.Do(func() {
				close(exitChannel)
			})
		}()
	})
}
