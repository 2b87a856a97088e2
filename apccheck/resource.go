/*
 * apccheck - Reliable and lightweight APC UPS monitoring plugins written in Go
 * Copyright (C) 2019  Pascal Mathis
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU General Public License as published by
 * the Free Software Foundation, either version 3 of the License, or
 * (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU General Public License
 * along with this program.  If not, see <http://www.gnu.org/licenses/>.
 */

package apccheck

import (
	"encoding/json"
	"fmt"
	"github.com/fabiokung/shm"
	"github.com/sirupsen/logrus"
	"github.com/snapserv/nagopher"
	"github.com/theckman/go-flock"
	"io/ioutil"
	"strings"
	"syscall"
	"time"
)

const persistenceLockTimeout = 10 * time.Second
const persistenceLockDelay = 100 * time.Millisecond

// Resource provides a base type for apccheck resources, which embeds nagopher.Resource
type Resource interface {
	nagopher.Resource
	Plugin() Plugin
}

// ResourceOpt is a type alias for functional options used by NewResource()
type ResourceOpt func(*baseResource)

type baseResource struct {
	nagopher.Resource `json:"-"`
	plugin            Plugin

	persistenceKey   string
	persistenceStore interface{}
	persistenceLock  *flock.Flock
}

// NewResource instantiates baseResource with the given functional options
func NewResource(plugin Plugin, options ...ResourceOpt) Resource {
	resource := &baseResource{
		Resource: nagopher.NewResource(),
		plugin:   plugin,
	}

	for _, option := range options {
		option(resource)
	}

	return resource
}

// ResourcePersistence is a functional option for NewResource(), which enables resource persistence with the given key.
// The persistent data store is guarded by a file lock, as several concurrent invocations operating the same store
// would otherwise lead to data loss.
func ResourcePersistence(uniqueKey string, dataStore interface{}) ResourceOpt {
	return func(r *baseResource) {
		uniqueKey = strings.ToLower(".apccheck-" + r.Plugin().Name() + "-" + uniqueKey)
		r.persistenceKey = strings.Replace(uniqueKey, " ", "-", -1)
		r.persistenceStore = dataStore
	}
}

func (r *baseResource) Setup(warnings nagopher.WarningCollection) error {
	if r.persistenceKey == "" {
		return nil
	}

	if err := r.lockPersistentData(); err != nil {
		return fmt.Errorf("unable to lock persistent data: %s", err.Error())
	}
	if err := r.loadPersistentData(); err != nil {
		return fmt.Errorf("unable to load persistent data: %s", err.Error())
	}

	return nil
}

func (r *baseResource) Teardown(warnings nagopher.WarningCollection) error {
	if r.persistenceKey == "" {
		return nil
	}

	if err := r.storePersistentData(); err != nil {
		return fmt.Errorf("unable to store persistent data: %s", err.Error())
	}
	r.unlockPersistentData()

	return nil
}

func (r *baseResource) lockPersistentData() error {
	r.persistenceLock = flock.NewFlock(fmt.Sprintf("/tmp/%s.lock", r.persistenceKey))

	return RetryDuring(persistenceLockTimeout, persistenceLockDelay, func() error {
		isLocked, err := r.persistenceLock.TryLock()
		if err != nil {
			return err
		}

		if !isLocked {
			return fmt.Errorf("could not obtain file lock for [%s]", r.persistenceLock.Path())
		}

		return nil
	})
}

func (r *baseResource) unlockPersistentData() {
	if r.persistenceLock == nil {
		return
	}

	syscall.Unlink(r.persistenceLock.Path())
	r.persistenceLock.Unlock()
	r.persistenceLock = nil
}

func (r *baseResource) loadPersistentData() (rerr error) {
	logrus.WithField("key", r.persistenceKey).Debug("loading persistent resource data")

	// Attempt to open or create file using SHM
	file, err := shm.Open(r.persistenceKey, shmReadFlags, shmDefaultMode)
	if err != nil {
		return err
	}

	// Ensure file is always being properly closed
	defer func() {
		err := file.Close()
		if err != nil {
			rerr = err
		}
	}()

	// Attempt to read contents from file
	jsonData, err := ioutil.ReadAll(file)
	if err != nil {
		return err
	}

	// Attempt to unmarshal contents as JSON into target
	if len(jsonData) > 0 {
		if err := json.Unmarshal(jsonData, r.persistenceStore); err != nil {
			return err
		}
	}

	return nil
}

func (r *baseResource) storePersistentData() (rerr error) {
	logrus.WithField("key", r.persistenceKey).Debug("storing persistent resource data")

	// Attempt to marshal source into JSON
	jsonData, err := json.Marshal(r.persistenceStore)
	if err != nil {
		return err
	}

	// Attempt to open or create file using SHM
	file, err := shm.Open(r.persistenceKey, shmWriteFlags, shmDefaultMode)
	if err != nil {
		return err
	}

	// Ensure file is always being properly closed
	defer func() {
		err := file.Close()
		if err != nil {
			rerr = err
		}
	}()

	// Attempt to write JSON data into file
	if _, err := file.Write(jsonData); err != nil {
		return err
	}

	return nil
}

func (r *baseResource) Plugin() Plugin {
	return r.plugin
}
