// Package integration contains end-to-end tests for queue-keeper.
// They run the HTTP API and the queue poller in-process over in-memory
// backends and verify the flow from a published store event to the API.
package integration

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestIntegration(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Queue Keeper Integration Suite")
}
