package structs

import (
	"sync"
)

// IngestionQueueStructure carries one document to the bulk indexer.
// WaitGroup.Done is called once the document is acknowledged.
type IngestionQueueStructure struct {
	Index     string
	Document  interface{}
	WaitGroup *sync.WaitGroup
}
