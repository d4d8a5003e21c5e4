package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/fatih/color"
)

var ErrSchemaFileExists = errors.New("schema file already exists")

// InitCmd represents the init command
type InitCmd struct {
	Force bool `help:"Overwrite an existing schema file"`
}

func (i *InitCmd) Run(ctx *Context) error {
	if ctx.Verbose {
		color.Blue("Initializing schema file: %s", ctx.Schema)
	}

	if _, err := os.Stat(ctx.Schema); err == nil && !i.Force {
		return fmt.Errorf("%w: %s (use --force to overwrite)", ErrSchemaFileExists, ctx.Schema)
	}

	if err := os.WriteFile(ctx.Schema, []byte(sampleSchema), 0o644); err != nil {
		return fmt.Errorf("failed to write schema file: %w", err)
	}

	if err := writeEnvExample(); err != nil {
		return err
	}

	if !ctx.Quiet {
		color.Green("Created %s", ctx.Schema)
		fmt.Println("\nNext steps:")
		fmt.Println("1. Put your app ID and access key in .env (see .env.example)")
		fmt.Println("2. Run 'appsheet inspect --app-id ... --access-key ... --tables ...' to infer table schemas")
		fmt.Println("3. Run 'appsheet validate' to check the result")
	}

	return nil
}

func writeEnvExample() error {
	if _, err := os.Stat(".env.example"); err == nil {
		return nil
	}

	content := "APPSHEET_APP_ID=your-app-id\nAPPSHEET_ACCESS_KEY=your-access-key\n"

	if err := os.WriteFile(".env.example", []byte(content), 0o644); err != nil {
		return fmt.Errorf("failed to write .env.example: %w", err)
	}

	return nil
}

const sampleSchema = `# AppSheet connection schema
# ${VAR} placeholders are resolved from the environment (.env is loaded
# automatically). An unresolved placeholder fails the load.
connections:
  default:
    appId: ${APPSHEET_APP_ID}
    applicationAccessKey: ${APPSHEET_ACCESS_KEY}
    # baseUrl: https://api.appsheet.com/api/v2
    # timeout: 30
    tables:
      tasks:
        tableName: Tasks
        keyField: task_id
        fields:
          task_id:
            type: Text
            required: true
          title:
            type: Text
            required: true
          status:
            type: Enum
            allowedValues: [Open, InProgress, Done]
          due_date:
            type: Date
          progress:
            type: Percent
`
