package notion

import (
	"context"
	"fmt"
)

// GetBlock retrieves a block by ID.
func (c *Client) GetBlock(ctx context.Context, blockID string) (*Block, error) {
	path := "/blocks/" + blockID

	var block Block
	if err := c.do(ctx, "GET", path, nil, &block); err != nil {
		return nil, fmt.Errorf("get block %s: %w", blockID, err)
	}

	return &block, nil
}

// GetBlockChildren retrieves one page of children of a block.
// Pass the cursor from a previous response to continue pagination.
func (c *Client) GetBlockChildren(ctx context.Context, blockID string, cursor string) (*BlockChildrenResponse, error) {
	path := fmt.Sprintf("/blocks/%s/children?page_size=%d", blockID, defaultPageSize)
	if cursor != "" {
		path += "&start_cursor=" + cursor
	}

	var result BlockChildrenResponse
	if err := c.do(ctx, "GET", path, nil, &result); err != nil {
		return nil, fmt.Errorf("get block children %s: %w", blockID, err)
	}

	return &result, nil
}
