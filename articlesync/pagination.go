package articlesync

import (
	"context"

	"github.com/goliatone/go-article-sync/cache"
)

// Pages describes the pagination window the UI should display after a fetch
// reconciled it against the server-reported total.
type Pages struct {
	Index      int
	Size       int
	Total      int
	TotalPages int
}

func normalizeWindow(page, size int) (int, int) {
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = DefaultPageSize
	}
	return page, size
}

func totalPages(total, size int) int {
	pages := (total + size - 1) / size
	if pages < 1 {
		pages = 1
	}
	return pages
}

// Articles resolves one page of the article collection. The (page, size)
// selection is translated to an (offset, limit) query; after the fetch the
// requested offset is compared against the server-reported total, and when a
// shrink (e.g. a delete) pushed the window past the end, the request is
// transparently re-issued for the last valid page.
func (c *Client) Articles(ctx context.Context, page, size int) (ArticleList, Pages, error) {
	page, size = normalizeWindow(page, size)

	list, err := c.fetchPage(ctx, page, size)
	if err != nil {
		return ArticleList{}, Pages{}, err
	}

	if last := totalPages(list.Total, size); page > last {
		c.logger.Debug().Int("page", page).Int("last", last).Int("total", list.Total).
			Msg("page window out of range, clamping to last page")
		page = last
		list, err = c.fetchPage(ctx, page, size)
		if err != nil {
			return ArticleList{}, Pages{}, err
		}
	}

	return list, Pages{
		Index:      page,
		Size:       size,
		Total:      list.Total,
		TotalPages: totalPages(list.Total, size),
	}, nil
}

func (c *Client) fetchPage(ctx context.Context, page, size int) (ArticleList, error) {
	offset := (page - 1) * size
	snap, err := c.store.Fetch(ctx, c.listKey(offset, size), func(ctx context.Context) (any, error) {
		return c.api.ListArticles(ctx, offset, size)
	}, TagArticles)
	if err != nil {
		return ArticleList{}, err
	}
	list, _ := cache.ValueOf[ArticleList](snap)
	return list, nil
}
