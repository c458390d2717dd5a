package backend

import (
	"context"
	"fmt"
	"io"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
)

// AzureReader satisfies pmtiles.RangeReader against an Azure Blob
// Storage container.
type AzureReader struct {
	client    *azblob.Client
	container string
	blobName  string
}

// NewAzureReader returns an AzureReader for the given container/blob.
func NewAzureReader(client *azblob.Client, container, blobName string) *AzureReader {
	return &AzureReader{client: client, container: container, blobName: blobName}
}

// ReadRange downloads [offset, offset+length) via DownloadStream.
func (r *AzureReader) ReadRange(ctx context.Context, offset uint64, length uint32) ([]byte, error) {
	o, l := int64(offset), int64(length)
	resp, err := r.client.DownloadStream(ctx, r.container, r.blobName, &azblob.DownloadStreamOptions{
		Range: blob.HTTPRange{Offset: o, Count: l},
	})
	if err != nil {
		return nil, fmt.Errorf("pmtiles/backend: azure DownloadStream: %w", err)
	}
	defer resp.Body.Close()

	buf := make([]byte, length)
	n, err := io.ReadFull(resp.Body, buf)
	if err != nil && err != io.ErrUnexpectedEOF {
		return nil, fmt.Errorf("pmtiles/backend: azure body read: %w", err)
	}
	if uint32(n) != length {
		return nil, fmt.Errorf("pmtiles/backend: short azure read: got %d want %d", n, length)
	}
	return buf, nil
}
