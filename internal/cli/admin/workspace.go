package admin

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/loomnote/loomnote/internal/config"
	"github.com/loomnote/loomnote/internal/database"
	"github.com/loomnote/loomnote/internal/repository"
	"github.com/loomnote/loomnote/internal/service"
)

func KnowledgeBaseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "kb",
		Short:   "Manage knowledge bases",
		Long:    "Create and list knowledge bases",
		Aliases: []string{"knowledge-base"},
	}

	cmd.AddCommand(KnowledgeBaseCreateCmd())
	cmd.AddCommand(KnowledgeBaseListCmd())

	return cmd
}

func KnowledgeBaseCreateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a new knowledge base",
		Long:  "Create a new knowledge base for the given tenant",
		Args:  cobra.ExactArgs(1),
		RunE:  runKnowledgeBaseCreate,
	}

	cmd.Flags().StringP("tenant", "t", "", "Tenant ID (required)")
	cmd.Flags().StringP("description", "d", "", "Knowledge base description")
	cmd.Flags().StringP("output", "o", "text", "Output format (text or json)")
	_ = cmd.MarkFlagRequired("tenant")

	return cmd
}

func runKnowledgeBaseCreate(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	name := args[0]
	tenantID, _ := cmd.Flags().GetString("tenant")
	description, _ := cmd.Flags().GetString("description")
	outputFormat, _ := cmd.Flags().GetString("output")

	pool, err := getDBPool(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	kbRepo := repository.NewKnowledgeBaseRepository(pool)
	convRepo := repository.NewConversationRepository(pool)
	svc := service.NewWorkspaceService(kbRepo, convRepo, &service.DefaultUUIDGenerator{})

	kb, err := svc.CreateKnowledgeBase(ctx, tenantID, name, description)
	if err != nil {
		return fmt.Errorf("failed to create knowledge base: %w", err)
	}

	if outputFormat == "json" {
		out, err := json.MarshalIndent(kb, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	}

	fmt.Printf("Created knowledge base '%s' (id: %s)\n", kb.Name, kb.ID)
	return nil
}

func KnowledgeBaseListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List knowledge bases",
		Long:  "List all knowledge bases of a tenant",
		RunE:  runKnowledgeBaseList,
	}

	cmd.Flags().StringP("tenant", "t", "", "Tenant ID (required)")
	cmd.Flags().StringP("output", "o", "text", "Output format (text or json)")
	_ = cmd.MarkFlagRequired("tenant")

	return cmd
}

func runKnowledgeBaseList(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	tenantID, _ := cmd.Flags().GetString("tenant")
	outputFormat, _ := cmd.Flags().GetString("output")

	pool, err := getDBPool(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	kbRepo := repository.NewKnowledgeBaseRepository(pool)
	kbs, err := kbRepo.ListByTenant(ctx, tenantID)
	if err != nil {
		return fmt.Errorf("failed to list knowledge bases: %w", err)
	}

	if outputFormat == "json" {
		out, err := json.MarshalIndent(kbs, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	}

	if len(kbs) == 0 {
		fmt.Println("No knowledge bases found")
		return nil
	}

	for _, kb := range kbs {
		fmt.Printf("%s  %s\n", kb.ID, kb.Name)
	}
	return nil
}

func getDBPool(ctx context.Context) (*pgxpool.Pool, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	pool, err := database.NewPoolFromURL(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return pool, nil
}
