package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-article-sync/articlesync"
)

func newListCmd(a *app) *cobra.Command {
	var page, size int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List articles, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			list, pages, err := a.client().Articles(cmd.Context(), page, size)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, article := range list.Articles {
				marker := " "
				if article.Favorited {
					marker = "*"
				}
				fmt.Fprintf(out, "%s %-40s %-16s ♥%d\n", marker, article.Slug, article.Author.Username, article.FavoritesCount)
			}
			fmt.Fprintf(out, "page %d/%d, %d articles\n", pages.Index, pages.TotalPages, pages.Total)
			return nil
		},
	}

	cmd.Flags().IntVar(&page, "page", 1, "page to show")
	cmd.Flags().IntVar(&size, "size", articlesync.DefaultPageSize, "articles per page")
	return cmd
}

func newReadCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "read SLUG",
		Short: "Show one article",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			article, err := a.client().Article(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s\nby %s", article.Title, article.Author.Username)
			if !article.UpdatedAt.IsZero() {
				fmt.Fprintf(out, " · %s", article.UpdatedAt.Format("2006-01-02"))
			}
			fmt.Fprintf(out, " · ♥%d\n", article.FavoritesCount)
			if len(article.TagList) > 0 {
				fmt.Fprintf(out, "tags: %s\n", strings.Join(article.TagList, ", "))
			}
			fmt.Fprintf(out, "\n%s\n", article.Body)
			return nil
		},
	}
}

func newPublishCmd(a *app) *cobra.Command {
	var slug string
	payload := articlesync.ArticlePayload{}
	var tags []string

	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Create an article, or update one with --slug",
		RunE: func(cmd *cobra.Command, args []string) error {
			payload.TagList = tags
			article, err := a.client().SubmitArticle(cmd.Context(), slug, payload)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "published %s\n", article.Slug)
			return nil
		},
	}

	cmd.Flags().StringVar(&slug, "slug", "", "slug of an existing article to update")
	cmd.Flags().StringVar(&payload.Title, "title", "", "article title")
	cmd.Flags().StringVar(&payload.Description, "description", "", "short description")
	cmd.Flags().StringVar(&payload.Body, "body", "", "article body, markdown")
	cmd.Flags().StringSliceVar(&tags, "tags", nil, "comma separated tags")
	return cmd
}

func newDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete SLUG",
		Short: "Delete an article",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.client().DeleteArticle(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
			return nil
		},
	}
}

func newLikeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "like SLUG",
		Short: "Toggle the favorite flag on an article",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.client().ToggleLike(cmd.Context(), args[0]); err != nil {
				return err
			}
			article, err := a.client().Article(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			state := "unliked"
			if article.Favorited {
				state = "liked"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s (♥%d)\n", state, article.Slug, article.FavoritesCount)
			return nil
		},
	}
}
