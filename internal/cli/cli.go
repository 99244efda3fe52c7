package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/drujensen/tasktracker/internal/domain/entities"
	"github.com/drujensen/tasktracker/internal/domain/services"
	"github.com/drujensen/tasktracker/internal/impl/export"

	"go.uber.org/zap"
)

// CreateDateLayout is the TT.MM.JJJJ form read when a task is created.
const CreateDateLayout = "02.01.2006"

const (
	msgCreated      = "Aufgabe wurde erfolgreich angelegt."
	msgBadDate      = "Ungültiges Datumsformat."
	msgNotFound     = "Aufgabe mit diesem Titel wurde nicht gefunden."
	msgDeleted      = "Aufgabe wurde erfolgreich gelöscht."
	msgEdited       = "Aufgabe wurde erfolgreich bearbeitet."
	msgSaved        = "Aufgaben wurden erfolgreich gespeichert."
	msgLoaded       = "Aufgaben wurden erfolgreich geladen."
	msgNoChanges    = "Keine Änderungen gegenüber der gespeicherten Datei."
	msgQuit         = "Programm wird beendet..."
	msgInvalidInput = "Ungültige Eingabe. Bitte wählen Sie eine Option aus dem Menü."
)

var menu = []string{
	"Aufgabenverwaltungssystem",
	"================================",
	"1. Aufgabe anlegen",
	"2. Aufgabe löschen",
	"3. Aufgabe bearbeiten",
	"4. Einzelne Aufgabe anzeigen",
	"5. Alle Aufgaben anzeigen",
	"6. Aufgaben speichern",
	"7. Aufgaben laden",
	"8. Aufgaben exportieren",
	"9. Programm beenden",
	"================================",
}

type CLI struct {
	taskService services.TaskService
	logger      *zap.Logger
	in          *bufio.Reader
	out         io.Writer
	diffFile    string
}

type Option func(*CLI)

func WithInput(in io.Reader) Option {
	return func(c *CLI) {
		c.in = bufio.NewReader(in)
	}
}

func WithOutput(out io.Writer) Option {
	return func(c *CLI) {
		c.out = out
	}
}

// WithDiffPreview shows a unified diff against path before every save.
func WithDiffPreview(path string) Option {
	return func(c *CLI) {
		c.diffFile = path
	}
}

func NewCLI(taskService services.TaskService, logger *zap.Logger, opts ...Option) *CLI {
	c := &CLI{
		taskService: taskService,
		logger:      logger,
		in:          bufio.NewReader(os.Stdin),
		out:         os.Stdout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run shows the menu until the user quits or the input ends.
func (c *CLI) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}

		for _, line := range menu {
			c.println(line)
		}
		choice, err := c.prompt("Wählen Sie eine Option: ")
		if err != nil {
			return c.endOfInput(err)
		}

		switch strings.TrimSpace(choice) {
		case "1":
			err = c.addTask()
		case "2":
			err = c.deleteTask()
		case "3":
			err = c.editTask()
		case "4":
			err = c.showTask()
		case "5":
			c.showAllTasks()
		case "6":
			c.saveTasks(ctx)
		case "7":
			c.loadTasks(ctx)
		case "8":
			err = c.exportTasks()
		case "9":
			c.println(msgQuit)
			return nil
		default:
			c.println(msgInvalidInput)
		}

		if err != nil {
			return c.endOfInput(err)
		}
		c.println("")
	}
}

func (c *CLI) addTask() error {
	c.println("Neue Aufgabe anlegen")
	title, err := c.prompt("Titel: ")
	if err != nil {
		return err
	}
	description, err := c.prompt("Beschreibung: ")
	if err != nil {
		return err
	}
	dueInput, err := c.prompt("Fälligkeitsdatum (TT.MM.JJJJ): ")
	if err != nil {
		return err
	}

	dueDate, err := time.Parse(CreateDateLayout, strings.TrimSpace(dueInput))
	if err != nil {
		c.println(msgBadDate)
		return nil
	}

	if err := c.taskService.AddTask(entities.NewTask(title, description, dueDate)); err != nil {
		c.fail(err)
		return nil
	}
	c.println(msgCreated)
	return nil
}

func (c *CLI) deleteTask() error {
	title, err := c.prompt("Titel der zu löschenden Aufgabe: ")
	if err != nil {
		return err
	}

	task := c.taskService.FindTaskByTitle(title)
	if task == nil {
		c.println(msgNotFound)
		return nil
	}

	if err := c.taskService.DeleteTask(task); err != nil {
		c.fail(err)
		return nil
	}
	c.println(msgDeleted)
	return nil
}

func (c *CLI) editTask() error {
	title, err := c.prompt("Titel der zu bearbeitenden Aufgabe: ")
	if err != nil {
		return err
	}

	task := c.taskService.FindTaskByTitle(title)
	if task == nil {
		c.println(msgNotFound)
		return nil
	}

	newTitle, err := c.prompt("Neuer Titel: ")
	if err != nil {
		return err
	}
	newDescription, err := c.prompt("Neue Beschreibung: ")
	if err != nil {
		return err
	}
	dueInput, err := c.prompt("Neues Fälligkeitsdatum (TT-MM-JJJJ): ")
	if err != nil {
		return err
	}

	newDueDate, err := entities.ParseDueDate(strings.TrimSpace(dueInput))
	if err != nil {
		c.println(msgBadDate)
		return nil
	}

	if err := c.taskService.EditTask(task, newTitle, newDescription, newDueDate); err != nil {
		c.fail(err)
		return nil
	}
	c.println(msgEdited)
	return nil
}

func (c *CLI) showTask() error {
	title, err := c.prompt("Titel der anzuzeigenden Aufgabe: ")
	if err != nil {
		return err
	}

	task := c.taskService.FindTaskByTitle(title)
	if task == nil {
		c.println(msgNotFound)
		return nil
	}

	c.println("Titel: " + task.Title)
	c.println("Beschreibung: " + task.Description)
	c.println("Fälligkeitsdatum: " + task.FormattedDueDate())
	return nil
}

func (c *CLI) showAllTasks() {
	tasks := c.taskService.GetAllTasks()
	entities.SortByDueDate(tasks)

	c.println("Alle Aufgaben:")
	for _, task := range tasks {
		c.println(fmt.Sprintf("- Titel: %s, Fälligkeitsdatum: %s", task.Title, task.FormattedDueDate()))
	}
}

func (c *CLI) saveTasks(ctx context.Context) {
	if c.diffFile != "" {
		diff, err := c.taskService.DiffAgainstJson(c.diffFile)
		switch {
		case err != nil:
			c.logger.Warn("Failed to diff task file", zap.String("path", c.diffFile), zap.Error(err))
		case diff == "":
			c.println(msgNoChanges)
		default:
			fmt.Fprint(c.out, diff)
		}
	}

	if err := c.taskService.Save(ctx); err != nil {
		c.fail(err)
		return
	}
	c.println(msgSaved)
}

func (c *CLI) loadTasks(ctx context.Context) {
	if err := c.taskService.Load(ctx); err != nil {
		c.fail(err)
		return
	}
	c.println(msgLoaded)
}

func (c *CLI) exportTasks() error {
	format, err := c.prompt(fmt.Sprintf("Format (%s): ", strings.Join(export.Formats, ", ")))
	if err != nil {
		return err
	}
	format = strings.ToLower(strings.TrimSpace(format))

	path, err := c.prompt(fmt.Sprintf("Dateiname [tasks.%s]: ", format))
	if err != nil {
		return err
	}
	path = strings.TrimSpace(path)
	if path == "" {
		path = "tasks." + format
	}

	data, err := export.Export(c.taskService.GetAllTasks(), format)
	if err != nil {
		c.fail(err)
		return nil
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		c.fail(err)
		return nil
	}

	c.logger.Debug("Tasks exported", zap.String("format", format), zap.String("path", path))
	c.println(fmt.Sprintf("Aufgaben wurden nach %s exportiert.", path))
	return nil
}

// prompt writes label and reads one line without its line ending. A final
// line without a newline is still returned; io.EOF is only reported when
// nothing was read.
func (c *CLI) prompt(label string) (string, error) {
	fmt.Fprint(c.out, label)
	line, err := c.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func (c *CLI) endOfInput(err error) error {
	if errors.Is(err, io.EOF) {
		c.println("")
		return nil
	}
	c.logger.Error("Failed to read input", zap.Error(err))
	return err
}

func (c *CLI) fail(err error) {
	c.logger.Error("Operation failed", zap.Error(err))
	c.println("Fehler: " + err.Error())
}

func (c *CLI) println(line string) {
	fmt.Fprintln(c.out, line)
}
