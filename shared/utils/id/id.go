package id

import (
	"log"
	"os"
	"strconv"
	"sync"

	"github.com/bwmarrin/snowflake"
)

var (
	node     *snowflake.Node
	initOnce sync.Once
)

// Init creates the snowflake node for this process. The node number comes
// from SNOWFLAKE_NODE so multiple replicas never collide.
func Init() error {
	var err error
	initOnce.Do(func() {
		nodeID := int64(1)
		if raw := os.Getenv("SNOWFLAKE_NODE"); raw != "" {
			if parsed, perr := strconv.ParseInt(raw, 10, 64); perr == nil {
				nodeID = parsed
			}
		}

		node, err = snowflake.NewNode(nodeID)
		if err != nil {
			return
		}
		log.Printf("✅ Snowflake ID generator initialized (node %d)", nodeID)
	})
	return err
}

// New returns the next unique ID.
func New() int64 {
	if node == nil {
		if err := Init(); err != nil {
			log.Printf("❌ Failed to initialize ID generator: %v", err)
			return 0
		}
	}
	return node.Generate().Int64()
}
