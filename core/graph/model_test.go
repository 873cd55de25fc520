package graph

import (
	"errors"
	"testing"
)

func TestModel_AddNode_AllocatesSequentialIDs(t *testing.T) {
	model := NewModel()

	first, err := model.AddNode(KindPrompt, NodeInit{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := model.AddNode(KindUserInput, NodeInit{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if first.ID != "1" || second.ID != "2" {
		t.Errorf("expected ids 1 and 2, got %q and %q", first.ID, second.ID)
	}
	if first.Kind() != KindPrompt {
		t.Errorf("expected prompt kind, got %s", first.Kind())
	}
	if second.Kind() != KindUserInput {
		t.Errorf("expected userInput kind, got %s", second.Kind())
	}
}

func TestModel_AddNode_IndependentAllocators(t *testing.T) {
	left := NewModel()
	right := NewModel()

	left.AddNode(KindPrompt, NodeInit{})
	left.AddNode(KindPrompt, NodeInit{})
	node, _ := right.AddNode(KindPrompt, NodeInit{})

	if node.ID != "1" {
		t.Errorf("expected a fresh model to start at 1, got %q", node.ID)
	}
}

func TestModel_AddNode_UnknownKind(t *testing.T) {
	model := NewModel()

	_, err := model.AddNode(Kind("chart"), NodeInit{})
	if !errors.Is(err, ErrUnknownKind) {
		t.Fatalf("expected ErrUnknownKind, got %v", err)
	}
	if model.Len() != 0 {
		t.Errorf("expected no node to be added, got %d", model.Len())
	}
}

func TestModel_AddNode_MismatchedData(t *testing.T) {
	model := NewModel()

	_, err := model.AddNode(KindPrompt, NodeInit{Data: &UserInputData{Ticker: "AAPL"}})
	if !errors.Is(err, ErrFieldNotApplicable) {
		t.Fatalf("expected ErrFieldNotApplicable, got %v", err)
	}
}

func TestModel_AddNode_ReturnsCopy(t *testing.T) {
	model := NewModel()
	node, _ := model.AddNode(KindPrompt, NodeInit{Data: &PromptData{Prompt: "original"}})

	node.Data.(*PromptData).Prompt = "changed"
	node.Name = "changed"

	stored, _ := model.Node(node.ID)
	if stored.Data.(*PromptData).Prompt != "original" || stored.Name != "" {
		t.Errorf("mutating the returned node must not change the model, got %+v", stored)
	}
}

func TestModel_AddEdge_NoEndpointValidation(t *testing.T) {
	model := NewModel()

	edge := model.AddEdge("missing", OutputHandle, "also-missing")

	if edge.TargetHandle != InputHandle {
		t.Errorf("expected target handle %q, got %q", InputHandle, edge.TargetHandle)
	}
	if len(model.Edges()) != 1 {
		t.Errorf("expected dangling edge to be stored, got %d edges", len(model.Edges()))
	}
}

func TestModel_SetNodeField(t *testing.T) {
	model := NewModel()
	prompt, _ := model.AddNode(KindPrompt, NodeInit{})
	input, _ := model.AddNode(KindUserInput, NodeInit{})

	tests := []struct {
		name    string
		nodeID  string
		field   Field
		value   any
		wantErr error
	}{
		{name: "prompt text", nodeID: prompt.ID, field: FieldPrompt, value: "Summarize {{ticker}}"},
		{name: "prompt search flag", nodeID: prompt.ID, field: FieldGoogleSearch, value: true},
		{name: "prompt name", nodeID: prompt.ID, field: FieldName, value: "Summary"},
		{name: "input ticker", nodeID: input.ID, field: FieldTicker, value: "AAPL"},
		{name: "input company", nodeID: input.ID, field: FieldCompanyName, value: "Apple"},
		{name: "input horizon", nodeID: input.ID, field: FieldTimeHorizon, value: "1y"},
		{name: "output is read-only", nodeID: prompt.ID, field: FieldOutput, value: "x", wantErr: ErrReadOnlyField},
		{name: "ticker on prompt", nodeID: prompt.ID, field: FieldTicker, value: "AAPL", wantErr: ErrFieldNotApplicable},
		{name: "prompt on input", nodeID: input.ID, field: FieldPrompt, value: "x", wantErr: ErrFieldNotApplicable},
		{name: "wrong value type", nodeID: prompt.ID, field: FieldGoogleSearch, value: "yes", wantErr: ErrFieldNotApplicable},
		{name: "unknown node", nodeID: "99", field: FieldName, value: "x", wantErr: ErrNodeNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := model.SetNodeField(tt.nodeID, tt.field, tt.value)
			if tt.wantErr == nil && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}

	storedPrompt, _ := model.Node(prompt.ID)
	promptData := storedPrompt.Data.(*PromptData)
	if storedPrompt.Name != "Summary" || promptData.Prompt != "Summarize {{ticker}}" || !promptData.GoogleSearch {
		t.Errorf("prompt node not updated: %+v %+v", storedPrompt, promptData)
	}

	storedInput, _ := model.Node(input.ID)
	inputData := storedInput.Data.(*UserInputData)
	if inputData.Ticker != "AAPL" || inputData.CompanyName != "Apple" || inputData.TimeHorizon != "1y" {
		t.Errorf("user input node not updated: %+v", inputData)
	}
}

func TestParseFieldValue(t *testing.T) {
	value, err := ParseFieldValue(FieldGoogleSearch, "true")
	if err != nil || value != true {
		t.Errorf("expected true, got %v (%v)", value, err)
	}

	value, err = ParseFieldValue(FieldPrompt, "hello")
	if err != nil || value != "hello" {
		t.Errorf("expected hello, got %v (%v)", value, err)
	}

	if _, err := ParseFieldValue(FieldGoogleSearch, "maybe"); err == nil {
		t.Error("expected error for invalid bool")
	}
	if _, err := ParseFieldValue(FieldOutput, "x"); !errors.Is(err, ErrReadOnlyField) {
		t.Errorf("expected ErrReadOnlyField, got %v", err)
	}
	if _, err := ParseFieldValue(Field("color"), "x"); err == nil {
		t.Error("expected error for unknown field")
	}
}

func TestModel_MergeOutputs_OnlyListedIDs(t *testing.T) {
	model := NewModel()
	first, _ := model.AddNode(KindPrompt, NodeInit{})
	second, _ := model.AddNode(KindPrompt, NodeInit{})

	model.MergeOutputs(map[string]string{first.ID: "one", second.ID: "two"})
	merged := model.MergeOutputs(map[string]string{first.ID: "uno", "404": "ghost"})

	if merged != 1 {
		t.Errorf("expected 1 merged output, got %d", merged)
	}
	storedFirst, _ := model.Node(first.ID)
	storedSecond, _ := model.Node(second.ID)
	if storedFirst.Output != "uno" {
		t.Errorf("expected first output uno, got %q", storedFirst.Output)
	}
	if storedSecond.Output != "two" {
		t.Errorf("expected second output to stay two, got %q", storedSecond.Output)
	}
}

func TestModel_RemoveNode_DropsIncidentEdges(t *testing.T) {
	model := NewModel()
	first, _ := model.AddNode(KindUserInput, NodeInit{})
	second, _ := model.AddNode(KindPrompt, NodeInit{})
	third, _ := model.AddNode(KindPrompt, NodeInit{})
	model.AddEdge(first.ID, HandleTicker, second.ID)
	model.AddEdge(second.ID, OutputHandle, third.ID)
	model.AddEdge(first.ID, HandleCompanyName, third.ID)

	if err := model.RemoveNode(second.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	edges := model.Edges()
	if len(edges) != 1 || edges[0].SourceHandle != HandleCompanyName {
		t.Errorf("expected only the company_name edge to remain, got %+v", edges)
	}
	if _, exists := model.Node(second.ID); exists {
		t.Error("expected node to be removed")
	}
	if err := model.RemoveNode(second.ID); !errors.Is(err, ErrNodeNotFound) {
		t.Errorf("expected ErrNodeNotFound, got %v", err)
	}

	next, _ := model.AddNode(KindPrompt, NodeInit{})
	if next.ID != "4" {
		t.Errorf("expected removed ids not to be reused, got %q", next.ID)
	}
}

func TestModel_RemoveEdge(t *testing.T) {
	model := NewModel()
	model.AddEdge("1", HandleTicker, "2")
	model.AddEdge("1", HandleTicker, "2")
	model.AddEdge("1", HandleCompanyName, "2")

	removed := model.RemoveEdge("1", HandleTicker, "2")

	if removed != 2 {
		t.Errorf("expected 2 removed edges, got %d", removed)
	}
	if len(model.Edges()) != 1 {
		t.Errorf("expected 1 edge left, got %d", len(model.Edges()))
	}
}

func TestModel_MoveNode(t *testing.T) {
	model := NewModel()
	node, _ := model.AddNode(KindPrompt, NodeInit{})

	if err := model.MoveNode(node.ID, Position{X: 10, Y: -5}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	stored, _ := model.Node(node.ID)
	if stored.Position != (Position{X: 10, Y: -5}) {
		t.Errorf("unexpected position %+v", stored.Position)
	}
	if err := model.MoveNode("missing", Position{}); !errors.Is(err, ErrNodeNotFound) {
		t.Errorf("expected ErrNodeNotFound, got %v", err)
	}
}

func TestModel_IncomingEdges(t *testing.T) {
	model := NewModel()
	model.AddEdge("1", OutputHandle, "3")
	model.AddEdge("2", OutputHandle, "4")
	model.AddEdge("2", OutputHandle, "3")

	incoming := model.IncomingEdges("3")
	if len(incoming) != 2 || incoming[0].Source != "1" || incoming[1].Source != "2" {
		t.Errorf("unexpected incoming edges %+v", incoming)
	}
}
